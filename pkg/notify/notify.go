// Package notify publishes user-facing messages to a topic whose
// subscribers receive them out of band.
package notify

import (
	"context"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/your-org/fileflow/pkg/kafka"
)

// Message is a publish-and-forget notification.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Publisher delivers a message to every subscriber of topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Close() error
}

// Config selects and configures the notification transport.
type Config struct {
	Provider string
	Region   string
	Endpoint string
	NatsURL  string
	Kafka    kafka.ProducerConfig
}

// New creates a Publisher based on the given configuration.
func New(ctx context.Context, cfg Config) (Publisher, error) {
	switch cfg.Provider {
	case "sns":
		return newSNSPublisher(ctx, cfg)
	case "kafka":
		kcfg := cfg.Kafka
		if kcfg.RequiredAcks == 0 {
			kcfg.RequiredAcks = kafkago.RequireAll
		}
		return NewKafkaPublisher(kafka.NewProducer(kcfg)), nil
	case "nats":
		return NewNatsPublisher(cfg.NatsURL)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported notification provider: %s", cfg.Provider)
	}
}
