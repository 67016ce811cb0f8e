package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound reports that the object is absent at the requested key.
var ErrNotFound = errors.New("object not found")

// Config contains the information required to talk to an object store.
type Config struct {
	Provider  string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// ObjectInfo is the metadata the pipeline reads from a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Client represents the capabilities the pipeline expects from blob storage.
// Every method addresses the bucket explicitly because upload events carry it.
type Client interface {
	Head(ctx context.Context, bucket, key string) (ObjectInfo, error)
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error
	Delete(ctx context.Context, bucket, key string) error
	Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, metadata map[string]string) error
	Close() error
}

// New creates an object store client based on the given configuration.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "minio":
		return newMinioClient(cfg)
	case "s3":
		return newS3Client(ctx, cfg)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported object store provider: %s", cfg.Provider)
	}
}
