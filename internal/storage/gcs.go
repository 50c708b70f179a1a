package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	apperrors "github.com/jittakal/avrobq/internal/errors"
	pkgstorage "github.com/jittakal/avrobq/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ pkgstorage.Store = (*GCSStore)(nil)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	ProjectID            string
	CredentialsFile      string
	CredentialsJSON      string
	Endpoint             string
	UseDefaultCredential bool
}

// GCSStore implements storage.Store for gs:// locations.
// One client serves every bucket a run touches.
type GCSStore struct {
	client  *storage.Client
	logger  *slog.Logger
	metrics MetricsCollector
}

// gcsClientOptions picks the authentication method: default credentials,
// a JSON string or a credentials file, in that order.
func gcsClientOptions(cfg GCSConfig) ([]option.ClientOption, string) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	switch {
	case cfg.UseDefaultCredential:
		return opts, "default"
	case cfg.CredentialsJSON != "":
		return append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))), "json"
	case cfg.CredentialsFile != "":
		return append(opts, option.WithCredentialsFile(cfg.CredentialsFile)), "file"
	default:
		return opts, "default"
	}
}

// NewGCSStore creates a new Google Cloud Storage store.
func NewGCSStore(ctx context.Context, cfg GCSConfig, logger *slog.Logger, metrics MetricsCollector) (*GCSStore, error) {
	opts, auth := gcsClientOptions(cfg)

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	logger.Info("GCS store created",
		"project_id", cfg.ProjectID,
		"credentials", auth,
	)

	return &GCSStore{client: client, logger: logger, metrics: metrics}, nil
}

func gcsLocation(ref string) (Location, error) {
	loc, err := ParseLocation(ref)
	if err != nil {
		return Location{}, err
	}
	if loc.Scheme != SchemeGCS {
		return Location{}, fmt.Errorf("%w: gcs store cannot handle %s", apperrors.ErrUnsupportedScheme, ref)
	}
	return loc, nil
}

// Open opens an object for reading.
func (s *GCSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	loc, err := gcsLocation(ref)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		s.incErrors("open")
		return nil, &apperrors.StorageError{Operation: "open", Path: ref, Err: err}
	}
	return r, nil
}

// List returns the object named by ref, or every object under the prefix.
func (s *GCSStore) List(ctx context.Context, ref string) ([]pkgstorage.Object, error) {
	loc, err := gcsLocation(ref)
	if err != nil {
		return nil, err
	}
	bucket := s.client.Bucket(loc.Bucket)

	if loc.Key != "" && !strings.HasSuffix(loc.Key, "/") {
		attrs, err := bucket.Object(loc.Key).Attrs(ctx)
		if err == nil {
			return []pkgstorage.Object{{Path: ref, Size: attrs.Size}}, nil
		}
		if !errors.Is(err, storage.ErrObjectNotExist) {
			s.incErrors("list")
			return nil, &apperrors.StorageError{Operation: "list", Path: ref, Err: err}
		}
	}

	prefix := loc.Key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var objects []pkgstorage.Object
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			s.incErrors("list")
			return nil, &apperrors.StorageError{Operation: "list", Path: ref, Err: err}
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		objects = append(objects, pkgstorage.Object{
			Path: "gs://" + loc.Bucket + "/" + attrs.Name,
			Size: attrs.Size,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
	return objects, nil
}

// Write uploads r as one object.
func (s *GCSStore) Write(ctx context.Context, ref string, r io.Reader) (int64, error) {
	loc, err := gcsLocation(ref)
	if err != nil {
		return 0, err
	}
	startTime := time.Now()

	w := s.client.Bucket(loc.Bucket).Object(loc.Key).NewWriter(ctx)
	w.ContentType = contentType(loc.Key)

	n, err := io.Copy(w, r)
	if err != nil {
		s.incErrors("write")
		w.Close()
		return 0, &apperrors.StorageError{Operation: "write", Path: ref, Err: err}
	}

	// Close finalizes the upload
	if err := w.Close(); err != nil {
		s.incErrors("write")
		return 0, &apperrors.StorageError{Operation: "upload", Path: ref, Err: err}
	}

	duration := time.Since(startTime)
	s.logger.Info("wrote object to GCS",
		"bucket", loc.Bucket,
		"object", loc.Key,
		"bytes_written", n,
		"total_duration_ms", duration.Milliseconds(),
	)
	if s.metrics != nil {
		s.metrics.ObservePartWritten("gcs", n, duration.Seconds())
	}
	return n, nil
}

// Close closes the GCS client.
func (s *GCSStore) Close() error {
	s.logger.Info("closing GCS store")
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *GCSStore) incErrors(operation string) {
	if s.metrics != nil {
		s.metrics.IncStorageErrors("gcs", operation)
	}
}

// contentType returns the MIME type for an output object name.
func contentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".gz"):
		return "application/gzip"
	case strings.HasSuffix(key, ".json"), strings.HasSuffix(key, ".bqsc"):
		return "application/json"
	case strings.HasSuffix(key, ".avro"):
		return "application/avro"
	default:
		return "application/octet-stream"
	}
}
