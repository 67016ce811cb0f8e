package metastore

import (
	"context"
	"fmt"
)

// Config selects and configures the metadata store.
type Config struct {
	Provider string
	Table    string
	Region   string
	Endpoint string
}

// Store appends file records. Insert is a single-row atomic write.
type Store interface {
	Insert(ctx context.Context, record FileRecord) error
}

// New creates a Store based on the given configuration.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Provider {
	case "dynamodb":
		return newDynamoStore(ctx, cfg)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported metadata store provider: %s", cfg.Provider)
	}
}
