package ingestion

import (
	"context"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// FromS3Event converts an S3 (or S3-compatible) notification into upload
// events, keeping only object-creation records.
func FromS3Event(e events.S3Event) []UploadEvent {
	out := make([]UploadEvent, 0, len(e.Records))
	for _, rec := range e.Records {
		if rec.EventName != "" && !strings.Contains(rec.EventName, "ObjectCreated") {
			continue
		}
		ev := UploadEvent{
			Bucket: rec.S3.Bucket.Name,
			Key:    rec.S3.Object.Key,
		}
		if rec.S3.Object.Size > 0 {
			size := rec.S3.Object.Size
			ev.SizeHint = &size
		}
		out = append(out, ev)
	}
	return out
}

// HandleS3Event is the Lambda entry point. A non-nil error fails the
// invocation and the S3 trigger retries it.
func (h *Handler) HandleS3Event(ctx context.Context, e events.S3Event) error {
	_, err := h.Process(ctx, FromS3Event(e))
	return err
}
