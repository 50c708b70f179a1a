// Package storage implements the storage backends, the location resolver,
// part routing and rotation.
package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Store = (*FileStore)(nil)

// MetricsCollector defines metrics operations for storage.
type MetricsCollector interface {
	ObservePartWritten(backend string, size int64, seconds float64)
	IncStorageErrors(backend string, operation string)
}

// FileStore implements storage.Store for the local filesystem.
// Writes go to a temporary file in the target directory that is renamed
// into place, so readers never see a partial part.
type FileStore struct {
	logger  *slog.Logger
	metrics MetricsCollector
}

// NewFileStore creates a new filesystem store.
func NewFileStore(logger *slog.Logger, metrics MetricsCollector) *FileStore {
	return &FileStore{logger: logger, metrics: metrics}
}

func (s *FileStore) localPath(ref string) (string, error) {
	loc, err := ParseLocation(ref)
	if err != nil {
		return "", err
	}
	if loc.Scheme != SchemeFile {
		return "", fmt.Errorf("%w: file store cannot handle %s", apperrors.ErrUnsupportedScheme, ref)
	}
	return loc.Key, nil
}

// Open opens a local file.
func (s *FileStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	p, err := s.localPath(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		s.incErrors("open")
		return nil, &apperrors.StorageError{Operation: "open", Path: ref, Err: err}
	}
	return f, nil
}

// List returns the file itself or every regular file below a directory.
func (s *FileStore) List(ctx context.Context, ref string) ([]storage.Object, error) {
	p, err := s.localPath(ref)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		s.incErrors("list")
		return nil, &apperrors.StorageError{Operation: "list", Path: ref, Err: err}
	}
	if !info.IsDir() {
		return []storage.Object{{Path: p, Size: info.Size()}}, nil
	}

	var objects []storage.Object
	err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, storage.Object{Path: path, Size: fi.Size()})
		return nil
	})
	if err != nil {
		s.incErrors("list")
		return nil, &apperrors.StorageError{Operation: "list", Path: ref, Err: err}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

// Write writes r to a local file, creating parent directories.
func (s *FileStore) Write(ctx context.Context, ref string, r io.Reader) (int64, error) {
	p, err := s.localPath(ref)
	if err != nil {
		return 0, err
	}
	startTime := time.Now()

	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.incErrors("mkdir")
		return 0, &apperrors.StorageError{Operation: "create", Path: ref, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		s.incErrors("create")
		return 0, &apperrors.StorageError{Operation: "create", Path: ref, Err: err}
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		s.incErrors("write")
		return 0, &apperrors.StorageError{Operation: "write", Path: ref, Err: err}
	}
	if err := tmp.Close(); err != nil {
		s.incErrors("write")
		return 0, &apperrors.StorageError{Operation: "write", Path: ref, Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		s.incErrors("write")
		return 0, &apperrors.StorageError{Operation: "write", Path: ref, Err: err}
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		s.incErrors("rename")
		return 0, &apperrors.StorageError{Operation: "rename", Path: ref, Err: err}
	}

	duration := time.Since(startTime)
	s.logger.Debug("wrote file",
		"path", p,
		"bytes_written", n,
		"total_duration_ms", duration.Milliseconds(),
	)
	if s.metrics != nil {
		s.metrics.ObservePartWritten("file", n, duration.Seconds())
	}
	return n, nil
}

// Close closes the store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) incErrors(operation string) {
	if s.metrics != nil {
		s.metrics.IncStorageErrors("file", operation)
	}
}
