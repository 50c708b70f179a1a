package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jittakal/avrobq/internal/config/dto"
	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/pkg/storage"
)

// Factory builds the store for one scheme.
type Factory func(ctx context.Context) (storage.Store, error)

// Resolver maps locations to stores. Backend clients are created on first
// use and shared by every location with the same scheme.
type Resolver struct {
	mu        sync.Mutex
	stores    map[string]storage.Store
	factories map[string]Factory
	logger    *slog.Logger
}

// NewResolver creates a resolver for the file, gs, s3 and wasbs schemes.
func NewResolver(cfg dto.StorageConfig, retry dto.RetryConfig, logger *slog.Logger, metrics MetricsCollector) *Resolver {
	r := &Resolver{
		stores:    make(map[string]storage.Store),
		factories: make(map[string]Factory),
		logger:    logger,
	}
	withRetry := func(s storage.Store) storage.Store {
		return NewRetryStore(s, retry, logger)
	}

	r.factories[SchemeFile] = func(context.Context) (storage.Store, error) {
		return withRetry(NewFileStore(logger, metrics)), nil
	}
	r.factories[SchemeGCS] = func(ctx context.Context) (storage.Store, error) {
		s, err := NewGCSStore(ctx, GCSConfig{
			ProjectID:            cfg.GCS.ProjectID,
			CredentialsFile:      cfg.GCS.CredentialsFile,
			CredentialsJSON:      cfg.GCS.CredentialsJSON,
			Endpoint:             cfg.GCS.Endpoint,
			UseDefaultCredential: cfg.GCS.UseDefaultCredential,
		}, logger, metrics)
		if err != nil {
			return nil, err
		}
		return withRetry(s), nil
	}
	r.factories[SchemeS3] = func(ctx context.Context) (storage.Store, error) {
		s, err := NewS3Store(ctx, S3Config{
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
			SSEEnabled:   cfg.S3.SSEEnabled,
			SSEKMSKeyID:  cfg.S3.SSEKMSKeyID,
		}, logger, metrics)
		if err != nil {
			return nil, err
		}
		return withRetry(s), nil
	}
	r.factories[SchemeAzure] = func(context.Context) (storage.Store, error) {
		s, err := NewAzureStore(AzureConfig{
			AccountName: cfg.Azure.AccountName,
			AccountKey:  cfg.Azure.AccountKey,
			Endpoint:    cfg.Azure.Endpoint,
		}, logger, metrics)
		if err != nil {
			return nil, err
		}
		return withRetry(s), nil
	}
	return r
}

// Register installs a factory for scheme, replacing any existing one.
func (r *Resolver) Register(scheme string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[scheme] = f
	delete(r.stores, scheme)
}

// Resolve returns the store serving ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (storage.Store, error) {
	loc, err := ParseLocation(ref)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[loc.Scheme]; ok {
		return s, nil
	}
	factory, ok := r.factories[loc.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedScheme, loc.Scheme)
	}
	s, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", loc.Scheme, err)
	}
	r.stores[loc.Scheme] = s
	r.logger.Debug("storage backend ready", "scheme", loc.Scheme)
	return s, nil
}

// Close closes every store created so far.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for scheme, s := range r.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s store: %w", scheme, err))
		}
		delete(r.stores, scheme)
	}
	return errors.Join(errs...)
}
