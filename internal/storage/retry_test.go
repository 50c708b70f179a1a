package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jittakal/avrobq/internal/config/dto"
	apperrors "github.com/jittakal/avrobq/internal/errors"
)

func TestRetryStore_Write(t *testing.T) {
	transient := &apperrors.StorageError{Operation: "upload", Err: errors.New("503")}
	permanent := &apperrors.StorageError{Operation: "open", Err: errors.New("403")}

	tests := []struct {
		name       string
		fail       []error
		replayable bool
		wantWrites int
		wantErr    bool
	}{
		{"first attempt succeeds", nil, true, 1, false},
		{"transient then success", []error{transient, transient}, true, 3, false},
		{"attempts exhausted", []error{transient, transient, transient}, true, 3, true},
		{"permanent error", []error{permanent}, true, 1, true},
		{"reader cannot be replayed", []error{transient}, false, 1, true},
	}

	cfg := dto.RetryConfig{MaxAttempts: 3, InitialBackoffMS: 1, MaxBackoffMS: 2, BackoffMultiplier: 2}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := newMemStore()
			inner.fail = append(inner.fail, tt.fail...)
			store := NewRetryStore(inner, cfg, slog.Default())

			var body io.Reader = bytes.NewReader([]byte("row\n"))
			if !tt.replayable {
				// MultiReader hides Seek
				body = io.MultiReader(strings.NewReader("row\n"))
			}

			n, err := store.Write(context.Background(), "gs://b/part", body)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Write() error = %v, wantErr %v", err, tt.wantErr)
			}
			if inner.writes != tt.wantWrites {
				t.Errorf("inner writes = %d, want %d", inner.writes, tt.wantWrites)
			}
			if !tt.wantErr {
				if n != 4 || string(inner.objects["gs://b/part"]) != "row\n" {
					t.Errorf("Write() = %d, stored %q", n, inner.objects["gs://b/part"])
				}
			}
		})
	}
}

func TestRetryStore_ContextCancelledDuringBackoff(t *testing.T) {
	inner := newMemStore()
	inner.fail = []error{&apperrors.StorageError{Operation: "write", Err: errors.New("503")}}
	store := NewRetryStore(inner, dto.RetryConfig{MaxAttempts: 3, InitialBackoffMS: 60000, BackoffMultiplier: 2}, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := store.Write(ctx, "gs://b/part", bytes.NewReader([]byte("x")))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Write() error = %v, want deadline exceeded", err)
	}
}
