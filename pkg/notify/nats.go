package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsPublisher publishes on a NATS subject; topic is the subject name.
type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NatsPublisher{nc: nc}, nil
}

// Publish flushes after each message so a returned nil means the server
// has the message.
func (p *NatsPublisher) Publish(ctx context.Context, topic string, msg Message) error {
	m := &nats.Msg{
		Subject: topic,
		Data:    []byte(msg.Body),
		Header:  nats.Header{"Subject": []string{msg.Subject}},
	}
	if err := p.nc.PublishMsg(m); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush %s: %w", topic, err)
	}
	return nil
}

func (p *NatsPublisher) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}
