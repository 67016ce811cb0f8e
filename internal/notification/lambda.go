package notification

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
)

// HandleDynamoDBEvent is the Lambda entry point for the table's stream.
// A non-nil error makes the event source retry the whole batch.
func (h *Handler) HandleDynamoDBEvent(ctx context.Context, e events.DynamoDBEvent) error {
	_, err := h.Process(ctx, FromDynamoDBEvent(e))
	return err
}
