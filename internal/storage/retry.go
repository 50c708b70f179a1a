package storage

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jittakal/avrobq/internal/config/dto"
	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/pkg/storage"
)

// RetryStore retries retryable write failures with exponential backoff.
// Only seekable readers can be replayed; anything else gets one attempt.
type RetryStore struct {
	storage.Store
	cfg    dto.RetryConfig
	logger *slog.Logger
}

// NewRetryStore wraps s.
func NewRetryStore(s storage.Store, cfg dto.RetryConfig, logger *slog.Logger) *RetryStore {
	return &RetryStore{Store: s, cfg: cfg, logger: logger}
}

// Write implements storage.Store.
func (s *RetryStore) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	seeker, replayable := r.(io.Seeker)
	attempts := s.cfg.MaxAttempts
	if attempts < 1 || !replayable {
		attempts = 1
	}
	backoff := time.Duration(s.cfg.InitialBackoffMS) * time.Millisecond
	maxBackoff := time.Duration(s.cfg.MaxBackoffMS) * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return 0, lastErr
			}
		}

		n, err := s.Store.Write(ctx, path, r)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if !apperrors.IsRetryable(err) || attempt == attempts {
			break
		}

		s.logger.Warn("storage write failed, retrying",
			"path", path,
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * s.cfg.BackoffMultiplier)
		if maxBackoff > 0 && backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return 0, lastErr
}
