package notify

import (
	"context"
	"sync"
)

// Published is a message captured by Memory.
type Published struct {
	Topic   string
	Message Message
}

// Memory records every publish; used for local runs and tests.
type Memory struct {
	mu   sync.Mutex
	sent []Published
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(ctx context.Context, topic string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Published{Topic: topic, Message: msg})
	return nil
}

// Sent returns a copy of the captured messages in publish order.
func (m *Memory) Sent() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published(nil), m.sent...)
}

func (m *Memory) Close() error {
	return nil
}
