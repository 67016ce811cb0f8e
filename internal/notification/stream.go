package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"go.uber.org/zap"
)

type streamsAPI interface {
	DescribeStream(ctx context.Context, params *dynamodbstreams.DescribeStreamInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.DescribeStreamOutput, error)
	GetShardIterator(ctx context.Context, params *dynamodbstreams.GetShardIteratorInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetShardIteratorOutput, error)
	GetRecords(ctx context.Context, params *dynamodbstreams.GetRecordsInput, optFns ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetRecordsOutput, error)
}

// StreamTailer feeds a table's DynamoDB stream into a Handler outside
// Lambda. Shards open at startup are read from LATEST; shards discovered
// later are read from TRIM_HORIZON so split children lose nothing.
type StreamTailer struct {
	api              streamsAPI
	streamARN        string
	handler          *Handler
	batchSize        int32
	pollInterval     time.Duration
	discoverInterval time.Duration
	maxRetries       int
	logger           *zap.Logger
}

type TailerParams struct {
	Client           *dynamodbstreams.Client
	StreamARN        string
	Handler          *Handler
	BatchSize        int32
	PollInterval     time.Duration
	DiscoverInterval time.Duration
	// MaxRetries bounds redelivery of a failing batch; negative retries
	// forever.
	MaxRetries int
	Logger     *zap.Logger
}

func NewStreamTailer(p TailerParams) *StreamTailer {
	t := &StreamTailer{
		api:              p.Client,
		streamARN:        p.StreamARN,
		handler:          p.Handler,
		batchSize:        p.BatchSize,
		pollInterval:     p.PollInterval,
		discoverInterval: p.DiscoverInterval,
		maxRetries:       p.MaxRetries,
		logger:           p.Logger,
	}
	if t.batchSize <= 0 {
		t.batchSize = 1
	}
	if t.pollInterval <= 0 {
		t.pollInterval = time.Second
	}
	if t.discoverInterval <= 0 {
		t.discoverInterval = time.Minute
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	return t
}

// Run tails every shard until ctx is cancelled.
func (t *StreamTailer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	seen := map[string]bool{}
	iteratorType := streamtypes.ShardIteratorTypeLatest

	ticker := time.NewTicker(t.discoverInterval)
	defer ticker.Stop()

	for {
		shards, err := t.listShards(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.logger.Warn("failed to describe stream", zap.String("stream_arn", t.streamARN), zap.Error(err))
		}

		for _, shardID := range shards {
			if seen[shardID] {
				continue
			}
			seen[shardID] = true

			wg.Add(1)
			go func(shardID string, it streamtypes.ShardIteratorType) {
				defer wg.Done()
				t.tailShard(ctx, shardID, it)
			}(shardID, iteratorType)
		}
		if err == nil {
			iteratorType = streamtypes.ShardIteratorTypeTrimHorizon
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (t *StreamTailer) listShards(ctx context.Context) ([]string, error) {
	var (
		shards []string
		start  *string
	)
	for {
		out, err := t.api.DescribeStream(ctx, &dynamodbstreams.DescribeStreamInput{
			StreamArn:             aws.String(t.streamARN),
			ExclusiveStartShardId: start,
		})
		if err != nil {
			return nil, fmt.Errorf("describe stream: %w", err)
		}
		if out.StreamDescription == nil {
			return shards, nil
		}
		for _, s := range out.StreamDescription.Shards {
			if s.ShardId != nil {
				shards = append(shards, *s.ShardId)
			}
		}
		start = out.StreamDescription.LastEvaluatedShardId
		if start == nil {
			return shards, nil
		}
	}
}

func (t *StreamTailer) shardIterator(ctx context.Context, shardID string, it streamtypes.ShardIteratorType, afterSeq string) (*string, error) {
	in := &dynamodbstreams.GetShardIteratorInput{
		StreamArn:         aws.String(t.streamARN),
		ShardId:           aws.String(shardID),
		ShardIteratorType: it,
	}
	if afterSeq != "" {
		in.ShardIteratorType = streamtypes.ShardIteratorTypeAfterSequenceNumber
		in.SequenceNumber = aws.String(afterSeq)
	}
	out, err := t.api.GetShardIterator(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("get shard iterator: %w", err)
	}
	return out.ShardIterator, nil
}

// tailShard reads one shard until it closes or ctx ends. A batch whose
// processing fails is read again from the same iterator, so delivery is at
// least once.
func (t *StreamTailer) tailShard(ctx context.Context, shardID string, it streamtypes.ShardIteratorType) {
	log := t.logger.With(zap.String("shard_id", shardID))

	var lastSeq string
	iter, err := t.shardIterator(ctx, shardID, it, "")
	for err != nil {
		if !sleep(ctx, t.pollInterval) {
			return
		}
		log.Warn("retrying shard iterator", zap.Error(err))
		iter, err = t.shardIterator(ctx, shardID, it, "")
	}

	attempts := 0
	for iter != nil {
		out, err := t.api.GetRecords(ctx, &dynamodbstreams.GetRecordsInput{
			ShardIterator: iter,
			Limit:         aws.Int32(t.batchSize),
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			var expired *streamtypes.ExpiredIteratorException
			if errors.As(err, &expired) {
				// With nothing processed yet there is no position to resume
				// from; re-reading the shard from its start may duplicate but
				// never loses records.
				if lastSeq == "" {
					it = streamtypes.ShardIteratorTypeTrimHorizon
				}
				if fresh, ierr := t.shardIterator(ctx, shardID, it, lastSeq); ierr == nil {
					iter = fresh
					continue
				}
			}
			log.Warn("failed to read stream records", zap.Error(err))
			if !sleep(ctx, t.pollInterval) {
				return
			}
			continue
		}

		if len(out.Records) > 0 {
			if _, perr := t.handler.Process(ctx, FromStreamRecords(out.Records)); perr != nil {
				attempts++
				if t.maxRetries < 0 || attempts <= t.maxRetries {
					log.Warn("batch failed, redelivering", zap.Int("attempt", attempts), zap.Error(perr))
					if !sleep(ctx, t.pollInterval) {
						return
					}
					continue
				}
				log.Error("batch failed after retries, skipping", zap.Int("attempts", attempts), zap.Error(perr))
			}
			attempts = 0
			if seq := out.Records[len(out.Records)-1].Dynamodb; seq != nil && seq.SequenceNumber != nil {
				lastSeq = *seq.SequenceNumber
			}
		}

		iter = out.NextShardIterator
		if len(out.Records) == 0 && iter != nil {
			if !sleep(ctx, t.pollInterval) {
				return
			}
		}
	}
	log.Info("shard closed")
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
