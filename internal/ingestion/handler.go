package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/fileflow/internal/pipeline"
	"github.com/your-org/fileflow/pkg/metastore"
	"github.com/your-org/fileflow/pkg/metrics"
	"github.com/your-org/fileflow/pkg/storage/objectstore"
	"github.com/your-org/fileflow/pkg/tracing"
)

const stage = "ingestion"

// DefaultQuarantinePrefix is where rejected objects are moved.
const DefaultQuarantinePrefix = "errors/"

// Handler validates newly created objects, quarantines rejects and records
// metadata for accepted files. It keeps no state between batches and is
// safe for concurrent use.
type Handler struct {
	store            objectstore.Client
	records          metastore.Store
	policy           *Policy
	filter           *KeyFilter
	quarantinePrefix string
	logger           *zap.Logger
	metrics          *metrics.Pipeline
	tracer           trace.Tracer
	now              func() time.Time
	newID            func() string
}

type Params struct {
	Store            objectstore.Client
	Records          metastore.Store
	Policy           *Policy
	QuarantinePrefix string
	Logger           *zap.Logger
	Metrics          *metrics.Pipeline

	// Filter restricts processing to matching keys; nil processes all.
	Filter *KeyFilter

	// Now and NewID default to the wall clock and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// NewHandler constructs an ingestion Handler.
func NewHandler(p Params) (*Handler, error) {
	if p.Store == nil || p.Records == nil {
		return nil, errors.New("ingestion handler requires an object store and a metadata store")
	}

	h := &Handler{
		store:            p.Store,
		records:          p.Records,
		policy:           p.Policy,
		filter:           p.Filter,
		quarantinePrefix: p.QuarantinePrefix,
		logger:           p.Logger,
		metrics:          p.Metrics,
		tracer:           tracing.Tracer(),
		now:              p.Now,
		newID:            p.NewID,
	}
	if h.policy == nil {
		policy, err := NewPolicy(DefaultAllowedExtensions, 0)
		if err != nil {
			return nil, err
		}
		h.policy = policy
	}
	if h.quarantinePrefix == "" {
		h.quarantinePrefix = DefaultQuarantinePrefix
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.newID == nil {
		h.newID = uuid.NewString
	}
	return h, nil
}

// Process handles a batch in delivery order. Per-event failures are logged
// and skipped; a failed metadata insert aborts the batch and is returned so
// the transport redelivers it. Duplicate records for redelivered events are
// expected: the object key is not a dedup key.
func (h *Handler) Process(ctx context.Context, batch []UploadEvent) (pipeline.Report, error) {
	ctx, span := h.tracer.Start(ctx, "ingestion.Process",
		trace.WithAttributes(attribute.Int("batch.size", len(batch))))
	defer span.End()

	report, err := pipeline.Fold(ctx, batch, h.processEvent)
	if err != nil {
		h.metrics.Failed(stage, true)
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch aborted")
		h.logger.Error("ingestion batch aborted",
			zap.Int("batch_size", len(batch)),
			zap.Int("processed", len(report.Results)),
			zap.Error(err),
		)
		return report, err
	}

	h.logger.Info("ingestion batch processed",
		zap.Int("batch_size", len(batch)),
		zap.Int("persisted", report.Count(pipeline.StatePersisted)),
		zap.Int("quarantined", report.Count(pipeline.StateQuarantined)),
		zap.Int("skipped", report.Count(pipeline.StateSkipped)),
	)
	return report, nil
}

func (h *Handler) processEvent(ctx context.Context, ev UploadEvent) pipeline.Result {
	ctx, span := h.tracer.Start(ctx, "ingestion.event", trace.WithAttributes(
		attribute.String("object.bucket", ev.Bucket),
		attribute.String("object.key_raw", ev.Key),
	))
	defer span.End()

	res := h.handle(ctx, ev)

	span.SetAttributes(attribute.String("outcome", string(res.State)))
	if res.Err != nil {
		span.RecordError(res.Err)
	}
	h.metrics.Outcome(stage, string(res.State))
	return res
}

func (h *Handler) handle(ctx context.Context, ev UploadEvent) pipeline.Result {
	log := h.logger.With(zap.String("bucket", ev.Bucket))

	key, err := DecodeKey(ev.Key)
	if err != nil {
		return h.skip(ctx, log.With(zap.String("key", ev.Key)), ev.Key, "undecodable object key", err)
	}
	log = log.With(zap.String("key", key))

	if strings.HasPrefix(key, h.quarantinePrefix) {
		log.Info("object is already in quarantine, skipping")
		return pipeline.Result{Ref: key, State: pipeline.StateSkipped}
	}
	if !h.filter.Match(key) {
		log.Debug("object key outside ingest patterns, skipping")
		return pipeline.Result{Ref: key, State: pipeline.StateSkipped}
	}

	ext := Extension(key)

	info, err := h.store.Head(ctx, ev.Bucket, key)
	if err != nil {
		reason := "failed to read object metadata"
		if errors.Is(err, objectstore.ErrNotFound) {
			reason = "object no longer exists"
		}
		return h.skip(ctx, log, key, reason, err)
	}
	if ev.SizeHint != nil && *ev.SizeHint != info.Size {
		log.Debug("event size differs from stored size",
			zap.Int64("size_hint", *ev.SizeHint), zap.Int64("size", info.Size))
	}

	if v := h.policy.Check(ext, info.Size); !v.Allowed {
		return h.quarantine(ctx, log, ev.Bucket, key, v.Reason)
	}
	return h.accept(ctx, log, key, ext, info.Size)
}

// quarantine copies the object under the quarantine prefix and only then
// deletes the original. A failed delete leaves two copies, which is
// tolerated: the quarantine copy is outside the watched prefix.
func (h *Handler) quarantine(ctx context.Context, log *zap.Logger, bucket, key, reason string) pipeline.Result {
	dest := h.quarantinePrefix + key
	log = log.With(zap.String("quarantine_key", dest))
	log.Warn("file rejected, moving to quarantine", zap.String("reason", reason))

	if err := h.store.Copy(ctx, bucket, key, dest); err != nil {
		return h.skip(ctx, log, key, "quarantine copy failed, original left in place", err)
	}

	h.metrics.Quarantined()

	if err := h.store.Delete(ctx, bucket, key); err != nil {
		h.metrics.Failed(stage, false)
		log.Error("failed to delete original after quarantine copy", zap.Error(err))
		return pipeline.Result{
			Ref:   key,
			State: pipeline.StateQuarantined,
			Err:   fmt.Errorf("delete original: %w", err),
		}
	}
	return pipeline.Result{Ref: key, State: pipeline.StateQuarantined}
}

func (h *Handler) accept(ctx context.Context, log *zap.Logger, key, ext string, size int64) pipeline.Result {
	record := metastore.FileRecord{
		ID:            h.newID(),
		UploadDate:    h.now().UTC().Format(metastore.UploadDateLayout),
		FileExtension: ext,
		FileSize:      size,
		FileName:      key,
	}

	if err := h.records.Insert(ctx, record); err != nil {
		log.Error("failed to persist file metadata", zap.String("id", record.ID), zap.Error(err))
		return pipeline.Result{
			Ref:   key,
			State: pipeline.StateAborted,
			Err:   &pipeline.FatalError{Ref: key, Err: fmt.Errorf("insert metadata: %w", err)},
		}
	}

	h.metrics.Accepted()
	log.Info("processed file",
		zap.String("id", record.ID),
		zap.String("extension", ext),
		zap.Int64("size", size),
	)
	return pipeline.Result{Ref: key, State: pipeline.StatePersisted}
}

// skip records a non-fatal failure. A failure caused by the invocation's
// deadline aborts instead, so the transport redelivers the event.
func (h *Handler) skip(ctx context.Context, log *zap.Logger, ref, reason string, err error) pipeline.Result {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return pipeline.Result{Ref: ref, State: pipeline.StateAborted, Err: fmt.Errorf("%s: %w", reason, err)}
	}
	h.metrics.Failed(stage, false)
	log.Warn(reason+", skipping", zap.Error(err))
	return pipeline.Result{Ref: ref, State: pipeline.StateSkipped, Err: fmt.Errorf("%s: %w", reason, err)}
}
