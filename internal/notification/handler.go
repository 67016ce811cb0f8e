package notification

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/fileflow/internal/pipeline"
	"github.com/your-org/fileflow/pkg/metrics"
	"github.com/your-org/fileflow/pkg/notify"
	"github.com/your-org/fileflow/pkg/tracing"
)

const stage = "notification"

// Handler turns metadata inserts into published notifications.
type Handler struct {
	publisher notify.Publisher
	topic     string
	logger    *zap.Logger
	metrics   *metrics.Pipeline
	tracer    trace.Tracer
}

type Params struct {
	Publisher notify.Publisher
	Topic     string
	Logger    *zap.Logger
	Metrics   *metrics.Pipeline
}

// NewHandler constructs a notification Handler.
func NewHandler(p Params) (*Handler, error) {
	if p.Publisher == nil {
		return nil, errors.New("notification handler requires a publisher")
	}
	if p.Topic == "" {
		return nil, errors.New("notification handler requires a topic")
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		publisher: p.Publisher,
		topic:     p.Topic,
		logger:    logger,
		metrics:   p.Metrics,
		tracer:    tracing.Tracer(),
	}, nil
}

// Process publishes one notification per well-formed INSERT. Other kinds
// are dropped, malformed images are skipped, and a failed publish aborts
// the batch so the stream redelivers it.
func (h *Handler) Process(ctx context.Context, batch []ChangeEvent) (pipeline.Report, error) {
	ctx, span := h.tracer.Start(ctx, "notification.Process",
		trace.WithAttributes(attribute.Int("batch.size", len(batch))))
	defer span.End()

	report, err := pipeline.Fold(ctx, batch, h.processEvent)
	if err != nil {
		h.metrics.Failed(stage, true)
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch aborted")
		h.logger.Error("notification batch aborted",
			zap.Int("batch_size", len(batch)),
			zap.Int("processed", len(report.Results)),
			zap.Error(err),
		)
		return report, err
	}

	h.logger.Debug("notification batch processed",
		zap.Int("batch_size", len(batch)),
		zap.Int("notified", report.Count(pipeline.StateNotified)),
		zap.Int("dropped", report.Count(pipeline.StateDropped)),
		zap.Int("skipped", report.Count(pipeline.StateSkipped)),
	)
	return report, nil
}

func (h *Handler) processEvent(ctx context.Context, ev ChangeEvent) pipeline.Result {
	res := h.handle(ctx, ev)
	h.metrics.Outcome(stage, string(res.State))
	return res
}

func (h *Handler) handle(ctx context.Context, ev ChangeEvent) pipeline.Result {
	ref := ev.Ref()
	if ev.Kind != KindInsert {
		return pipeline.Result{Ref: ref, State: pipeline.StateDropped}
	}

	log := h.logger.With(zap.String("event_id", ref))

	fields, err := ev.NewImage.Fields()
	if err != nil {
		h.metrics.Failed(stage, false)
		log.Warn("skipping malformed change record", zap.Error(err))
		return pipeline.Result{Ref: ref, State: pipeline.StateSkipped, Err: err}
	}
	if id := ev.NewImage.ID; id != nil {
		log = log.With(zap.String("file_id", *id))
	}

	ctx, span := h.tracer.Start(ctx, "notification.publish", trace.WithAttributes(
		attribute.String("file.extension", fields.FileExtension),
		attribute.String("messaging.destination", h.topic),
	))
	defer span.End()

	if err := h.publisher.Publish(ctx, h.topic, FormatMessage(fields)); err != nil {
		span.RecordError(err)
		log.Error("failed to publish notification", zap.String("file_name", fields.FileName), zap.Error(err))
		return pipeline.Result{
			Ref:   ref,
			State: pipeline.StateAborted,
			Err:   &pipeline.FatalError{Ref: ref, Err: fmt.Errorf("publish notification: %w", err)},
		}
	}

	h.metrics.Notified()
	log.Info("notification sent", zap.String("file_name", fields.FileName))
	return pipeline.Result{Ref: ref, State: pipeline.StateNotified}
}
