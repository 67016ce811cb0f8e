package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	streamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fileflow/pkg/notify"
)

const streamARN = "arn:aws:dynamodb:us-east-1:000000000000:table/FileMetadata/stream/2024-11-24T00:00:00.000"

type page struct {
	records []streamtypes.Record
	next    *string
	err     error
}

// fakeStreams serves pages keyed by iterator; a page's err is returned once.
type fakeStreams struct {
	mu        sync.Mutex
	shards    []string
	pages     map[string]*page
	reads     []string
	iterators []*dynamodbstreams.GetShardIteratorInput
}

func (f *fakeStreams) DescribeStream(_ context.Context, in *dynamodbstreams.DescribeStreamInput, _ ...func(*dynamodbstreams.Options)) (*dynamodbstreams.DescribeStreamOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	desc := &streamtypes.StreamDescription{StreamArn: in.StreamArn}
	for _, id := range f.shards {
		desc.Shards = append(desc.Shards, streamtypes.Shard{ShardId: aws.String(id)})
	}
	return &dynamodbstreams.DescribeStreamOutput{StreamDescription: desc}, nil
}

func (f *fakeStreams) GetShardIterator(_ context.Context, in *dynamodbstreams.GetShardIteratorInput, _ ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetShardIteratorOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.iterators = append(f.iterators, in)
	it := *in.ShardId + "/0"
	if in.SequenceNumber != nil {
		it = *in.ShardId + "/after-" + *in.SequenceNumber
	}
	return &dynamodbstreams.GetShardIteratorOutput{ShardIterator: aws.String(it)}, nil
}

func (f *fakeStreams) GetRecords(_ context.Context, in *dynamodbstreams.GetRecordsInput, _ ...func(*dynamodbstreams.Options)) (*dynamodbstreams.GetRecordsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, *in.ShardIterator)
	p, ok := f.pages[*in.ShardIterator]
	if !ok {
		return &dynamodbstreams.GetRecordsOutput{}, nil
	}
	if p.err != nil {
		err := p.err
		p.err = nil
		return nil, err
	}
	return &dynamodbstreams.GetRecordsOutput{Records: p.records, NextShardIterator: p.next}, nil
}

func (f *fakeStreams) readLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reads...)
}

func streamInsert(seq, ext string) streamtypes.Record {
	return streamtypes.Record{
		EventID:   aws.String("evt-" + seq),
		EventName: streamtypes.OperationTypeInsert,
		Dynamodb: &streamtypes.StreamRecord{
			SequenceNumber: aws.String(seq),
			NewImage: map[string]streamtypes.AttributeValue{
				"fileExtension": &streamtypes.AttributeValueMemberS{Value: ext},
				"fileSize":      &streamtypes.AttributeValueMemberN{Value: "10"},
				"uploadDate":    &streamtypes.AttributeValueMemberS{Value: "2024-11-24T12:00:00.000Z"},
			},
		},
	}
}

// flakyPublisher fails the first n publishes.
type flakyPublisher struct {
	*notify.Memory
	mu    sync.Mutex
	fails int
	calls int
}

func (p *flakyPublisher) Publish(ctx context.Context, topic string, msg notify.Message) error {
	p.mu.Lock()
	p.calls++
	fail := p.calls <= p.fails
	p.mu.Unlock()
	if fail {
		return errPublish
	}
	return p.Memory.Publish(ctx, topic, msg)
}

func newTestTailer(t *testing.T, api streamsAPI, pub notify.Publisher, maxRetries int) *StreamTailer {
	t.Helper()
	tailer := NewStreamTailer(TailerParams{
		StreamARN:        streamARN,
		Handler:          newTestHandler(t, pub),
		BatchSize:        10,
		PollInterval:     time.Millisecond,
		DiscoverInterval: time.Hour,
		MaxRetries:       maxRetries,
	})
	tailer.api = api
	return tailer
}

func TestTailShardDeliversUntilClosed(t *testing.T) {
	api := &fakeStreams{pages: map[string]*page{
		"shard-1/0": {records: []streamtypes.Record{streamInsert("100", ".pdf"), streamInsert("101", ".png")}, next: aws.String("shard-1/1")},
		"shard-1/1": {},
	}}
	pub := notify.NewMemory()
	tailer := newTestTailer(t, api, pub, 3)

	tailer.tailShard(context.Background(), "shard-1", streamtypes.ShardIteratorTypeLatest)

	assert.Len(t, pub.Sent(), 2)
	assert.Equal(t, []string{"shard-1/0", "shard-1/1"}, api.readLog())
	require.Len(t, api.iterators, 1)
	assert.Equal(t, streamtypes.ShardIteratorTypeLatest, api.iterators[0].ShardIteratorType)
}

func TestTailShardRedeliversFailedBatch(t *testing.T) {
	api := &fakeStreams{pages: map[string]*page{
		"shard-1/0": {records: []streamtypes.Record{streamInsert("100", ".pdf")}, next: aws.String("shard-1/1")},
		"shard-1/1": {},
	}}
	pub := &flakyPublisher{Memory: notify.NewMemory(), fails: 1}
	tailer := newTestTailer(t, api, pub, 3)

	tailer.tailShard(context.Background(), "shard-1", streamtypes.ShardIteratorTypeLatest)

	assert.Equal(t, []string{"shard-1/0", "shard-1/0", "shard-1/1"}, api.readLog())
	assert.Equal(t, 2, pub.calls)
	assert.Len(t, pub.Sent(), 1)
}

func TestTailShardGivesUpAfterMaxRetries(t *testing.T) {
	api := &fakeStreams{pages: map[string]*page{
		"shard-1/0": {records: []streamtypes.Record{streamInsert("100", ".pdf")}, next: aws.String("shard-1/1")},
		"shard-1/1": {records: []streamtypes.Record{streamInsert("101", ".jpg")}},
	}}
	pub := &flakyPublisher{Memory: notify.NewMemory(), fails: 2}
	tailer := newTestTailer(t, api, pub, 1)

	tailer.tailShard(context.Background(), "shard-1", streamtypes.ShardIteratorTypeLatest)

	assert.Equal(t, []string{"shard-1/0", "shard-1/0", "shard-1/1"}, api.readLog())
	sent := pub.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Message.Body, "Extension: .jpg")
}

func TestTailShardReacquiresExpiredIterator(t *testing.T) {
	api := &fakeStreams{pages: map[string]*page{
		"shard-1/0":         {records: []streamtypes.Record{streamInsert("100", ".pdf")}, next: aws.String("shard-1/1")},
		"shard-1/1":         {err: &streamtypes.ExpiredIteratorException{Message: aws.String("expired")}},
		"shard-1/after-100": {},
	}}
	pub := notify.NewMemory()
	tailer := newTestTailer(t, api, pub, 3)

	tailer.tailShard(context.Background(), "shard-1", streamtypes.ShardIteratorTypeTrimHorizon)

	assert.Equal(t, []string{"shard-1/0", "shard-1/1", "shard-1/after-100"}, api.readLog())
	require.Len(t, api.iterators, 2)
	assert.Equal(t, streamtypes.ShardIteratorTypeAfterSequenceNumber, api.iterators[1].ShardIteratorType)
	assert.Len(t, pub.Sent(), 1)
}

func TestTailShardExpiredBeforeFirstRecordRestartsFromTrimHorizon(t *testing.T) {
	api := &fakeStreams{pages: map[string]*page{
		"shard-1/0": {
			err:     &streamtypes.ExpiredIteratorException{Message: aws.String("expired")},
			records: []streamtypes.Record{streamInsert("100", ".pdf")},
		},
	}}
	pub := notify.NewMemory()
	tailer := newTestTailer(t, api, pub, 3)

	tailer.tailShard(context.Background(), "shard-1", streamtypes.ShardIteratorTypeLatest)

	assert.Equal(t, []string{"shard-1/0", "shard-1/0"}, api.readLog())
	require.Len(t, api.iterators, 2)
	assert.Equal(t, streamtypes.ShardIteratorTypeLatest, api.iterators[0].ShardIteratorType)
	assert.Equal(t, streamtypes.ShardIteratorTypeTrimHorizon, api.iterators[1].ShardIteratorType)
	assert.Nil(t, api.iterators[1].SequenceNumber)
	assert.Len(t, pub.Sent(), 1)
}

func TestTailShardStopsOnCancel(t *testing.T) {
	api := &fakeStreams{pages: map[string]*page{
		"shard-1/0": {next: aws.String("shard-1/0")},
	}}
	tailer := newTestTailer(t, api, notify.NewMemory(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tailer.tailShard(ctx, "shard-1", streamtypes.ShardIteratorTypeLatest)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tailShard did not return after cancel")
	}
}

func TestRunTailsEveryShard(t *testing.T) {
	api := &fakeStreams{
		shards: []string{"shard-1", "shard-2"},
		pages: map[string]*page{
			"shard-1/0": {records: []streamtypes.Record{streamInsert("100", ".pdf")}},
			"shard-2/0": {records: []streamtypes.Record{streamInsert("200", ".png")}},
		},
	}
	pub := notify.NewMemory()
	tailer := newTestTailer(t, api, pub, 3)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- tailer.Run(ctx) }()

	require.Eventually(t, func() bool { return len(pub.Sent()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)
}
