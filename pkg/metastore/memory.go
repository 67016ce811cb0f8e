package metastore

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps records in insertion order.
type Memory struct {
	mu      sync.Mutex
	records []FileRecord
	ids     map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{ids: make(map[string]struct{})}
}

func (m *Memory) Insert(ctx context.Context, record FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[record.ID]; ok {
		return fmt.Errorf("record %s already exists", record.ID)
	}
	m.ids[record.ID] = struct{}{}
	m.records = append(m.records, record)
	return nil
}

// Records returns a copy of everything inserted so far.
func (m *Memory) Records() []FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FileRecord(nil), m.records...)
}
