package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jittakal/avrobq/internal/config/dto"
	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/pkg/storage"
)

// memStore is an in-memory storage.Store for tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	closed  bool
	fail    []error
	writes  int
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	if !ok {
		return nil, &apperrors.StorageError{Operation: "open", Path: path, Err: errors.New("not found")}
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *memStore) List(ctx context.Context, path string) ([]storage.Object, error) {
	return nil, nil
}

func (m *memStore) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if len(m.fail) > 0 {
		err := m.fail[0]
		m.fail = m.fail[1:]
		io.Copy(io.Discard, r)
		return 0, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.objects[path] = data
	return int64(len(data)), nil
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func TestResolver_Dispatch(t *testing.T) {
	r := NewResolver(dto.StorageConfig{}, dto.RetryConfig{MaxAttempts: 1}, slog.Default(), nil)
	ctx := context.Background()

	gcs := newMemStore()
	builds := 0
	r.Register(SchemeGCS, func(context.Context) (storage.Store, error) {
		builds++
		return gcs, nil
	})

	for _, ref := range []string{"gs://a/x.avro", "gs://b/y.avro"} {
		s, err := r.Resolve(ctx, ref)
		if err != nil {
			t.Fatalf("Resolve(%s) error = %v", ref, err)
		}
		if s != gcs {
			t.Errorf("Resolve(%s) returned the wrong store", ref)
		}
	}
	if builds != 1 {
		t.Errorf("factory called %d times, want 1", builds)
	}

	local, err := r.Resolve(ctx, filepath.Join(t.TempDir(), "a.avro"))
	if err != nil {
		t.Fatalf("Resolve(local) error = %v", err)
	}
	if _, ok := local.(*RetryStore); !ok {
		t.Errorf("local store = %T, want *RetryStore", local)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !gcs.closed {
		t.Error("Close() did not close the gcs store")
	}
}

func TestResolver_UnsupportedScheme(t *testing.T) {
	r := NewResolver(dto.StorageConfig{}, dto.RetryConfig{MaxAttempts: 1}, slog.Default(), nil)

	for _, ref := range []string{"hdfs://nn/data/a.avro", "hdfs:/data/a.avro", "kafka://events"} {
		t.Run(ref, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), ref)
			if !errors.Is(err, apperrors.ErrUnsupportedScheme) {
				t.Errorf("Resolve() error = %v, want ErrUnsupportedScheme", err)
			}
		})
	}
}

func TestResolver_FactoryError(t *testing.T) {
	r := NewResolver(dto.StorageConfig{}, dto.RetryConfig{MaxAttempts: 1}, slog.Default(), nil)
	boom := errors.New("no credentials")
	r.Register(SchemeS3, func(context.Context) (storage.Store, error) { return nil, boom })

	if _, err := r.Resolve(context.Background(), "s3://bucket/key"); !errors.Is(err, boom) {
		t.Errorf("Resolve() error = %v, want %v", err, boom)
	}
}
