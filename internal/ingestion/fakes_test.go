package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/your-org/fileflow/pkg/metastore"
	"github.com/your-org/fileflow/pkg/storage/objectstore"
)

const bucket = "file-storage"

var errInjected = errors.New("injected failure")

// faultyStore fails selected operations on selected keys and records the
// order of mutating calls.
type faultyStore struct {
	*objectstore.Memory

	mu       sync.Mutex
	failHead map[string]error
	failCopy map[string]error
	failDel  map[string]error
	calls    []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Memory:   objectstore.NewMemory(),
		failHead: map[string]error{},
		failCopy: map[string]error{},
		failDel:  map[string]error{},
	}
}

func (s *faultyStore) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *faultyStore) Head(ctx context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	if err := s.failHead[key]; err != nil {
		return objectstore.ObjectInfo{}, err
	}
	return s.Memory.Head(ctx, bucket, key)
}

func (s *faultyStore) Copy(ctx context.Context, bucket, src, dst string) error {
	s.record("copy " + src)
	if err := s.failCopy[src]; err != nil {
		return err
	}
	return s.Memory.Copy(ctx, bucket, src, dst)
}

func (s *faultyStore) Delete(ctx context.Context, bucket, key string) error {
	s.record("delete " + key)
	if err := s.failDel[key]; err != nil {
		return err
	}
	return s.Memory.Delete(ctx, bucket, key)
}

func (s *faultyStore) seed(t *testing.T, key, content string) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), bucket, key, strings.NewReader(content), int64(len(content)), nil))
}

// faultyRecords fails Insert for file names in failFor.
type faultyRecords struct {
	*metastore.Memory
	failFor map[string]bool
}

func (r *faultyRecords) Insert(ctx context.Context, rec metastore.FileRecord) error {
	if r.failFor[rec.FileName] {
		return fmt.Errorf("put item: %w", errInjected)
	}
	return r.Memory.Insert(ctx, rec)
}

type fixture struct {
	store   *faultyStore
	records *faultyRecords
	handler *Handler
}

func newFixture(t *testing.T, policy *Policy) *fixture {
	t.Helper()

	f := &fixture{
		store:   newFaultyStore(),
		records: &faultyRecords{Memory: metastore.NewMemory(), failFor: map[string]bool{}},
	}

	var seq int
	base := time.Date(2024, 11, 24, 12, 0, 0, 0, time.UTC)
	h, err := NewHandler(Params{
		Store:   f.store,
		Records: f.records,
		Policy:  policy,
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
		Now: func() time.Time {
			return base.Add(time.Duration(seq) * time.Second)
		},
	})
	require.NoError(t, err)
	f.handler = h
	return f
}

func uploadEvents(keys ...string) []UploadEvent {
	out := make([]UploadEvent, 0, len(keys))
	for _, k := range keys {
		out = append(out, UploadEvent{Bucket: bucket, Key: k})
	}
	return out
}

func fileNames(recs []metastore.FileRecord) []string {
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.FileName)
	}
	return names
}
