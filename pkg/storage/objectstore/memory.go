package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Client used for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data     []byte
	metadata map[string]string
}

// NewMemory returns an empty in-memory object store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

func memoryKey(bucket, key string) string {
	return bucket + "/" + key
}

func (m *Memory) Head(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[memoryKey(bucket, key)]
	if !ok {
		return ObjectInfo{}, fmt.Errorf("head object %s: %w", key, ErrNotFound)
	}
	return ObjectInfo{Key: key, Size: int64(len(obj.data))}, nil
}

func (m *Memory) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[memoryKey(bucket, srcKey)]
	if !ok {
		return fmt.Errorf("copy object %s: %w", srcKey, ErrNotFound)
	}
	m.objects[memoryKey(bucket, dstKey)] = memoryObject{
		data:     bytes.Clone(obj.data),
		metadata: obj.metadata,
	}
	return nil
}

// Delete is idempotent, matching S3 semantics for absent keys.
func (m *Memory) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, memoryKey(bucket, key))
	return nil
}

func (m *Memory) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, metadata map[string]string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("put object %s: read %d bytes, expected %d", key, len(data), size)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memoryKey(bucket, key)] = memoryObject{data: data, metadata: metadata}
	return nil
}

// Keys lists the keys stored in bucket in lexical order.
func (m *Memory) Keys(bucket string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := bucket + "/"
	var keys []string
	for k := range m.objects {
		if rest, ok := strings.CutPrefix(k, prefix); ok {
			keys = append(keys, rest)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Close() error {
	return nil
}
