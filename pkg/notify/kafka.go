package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

type producer interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
	Close() error
}

// KafkaPublisher writes each message as a JSON record with the subject
// mirrored into a header for consumers that only inspect headers.
type KafkaPublisher struct {
	producer producer
}

func NewKafkaPublisher(p producer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	headers := map[string]string{
		"event_type": "file.uploaded",
		"subject":    msg.Subject,
	}
	if err := p.producer.Publish(ctx, topic, nil, payload, headers); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
