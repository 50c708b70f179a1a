package source

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jittakal/avrobq/internal/config/dto"
	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/internal/storage"
)

func newTestResolver() *storage.Resolver {
	return storage.NewResolver(dto.StorageConfig{}, dto.RetryConfig{MaxAttempts: 1}, slog.Default(), nil)
}

func TestLoadSchema(t *testing.T) {
	path := writeFile(t, t.TempDir(), "event.avsc", eventSchema)

	codec, err := LoadSchema(context.Background(), newTestResolver(), path)
	if err != nil {
		t.Fatalf("LoadSchema() error = %v", err)
	}
	if codec.Schema.Name != "com.example.Event" {
		t.Errorf("Schema.Name = %s", codec.Schema.Name)
	}
	if len(codec.Schema.Fields) != 2 {
		t.Errorf("len(Fields) = %d, want 2", len(codec.Schema.Fields))
	}
	if codec.Goavro == nil {
		t.Error("Goavro codec is nil")
	}
}

func TestLoadSchema_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		ref    string
		target error
	}{
		{"missing file", filepath.Join(dir, "missing.avsc"), nil},
		{"not a record", writeFile(t, dir, "string.avsc", `"string"`), apperrors.ErrNotRecord},
		{"unsupported scheme", "hdfs://nn/schema.avsc", apperrors.ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSchema(context.Background(), newTestResolver(), tt.ref)
			if err == nil {
				t.Fatal("LoadSchema() should fail")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("LoadSchema() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.avro", "x")
	writeFile(t, dir, "a.avro", "x")
	writeFile(t, dir, "notes.txt", "x")
	writeFile(t, dir, filepath.Join("sub", "c.avro"), "x")
	ctx := context.Background()

	got, err := Expand(ctx, newTestResolver(), dir, ".avro")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.avro"),
		filepath.Join(dir, "b.avro"),
		filepath.Join(dir, "sub", "c.avro"),
	}
	if len(got) != len(want) {
		t.Fatalf("Expand() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expand()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	single := filepath.Join(dir, "notes.txt")
	got, err = Expand(ctx, newTestResolver(), single, ".avro")
	if err != nil {
		t.Fatalf("Expand(file) error = %v", err)
	}
	if len(got) != 1 || got[0] != single {
		t.Errorf("Expand(file) = %v, want [%s]", got, single)
	}
}

func TestExpand_NoMatches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")
	writeFile(t, dir, "b.txt", "x")

	if _, err := Expand(context.Background(), newTestResolver(), dir, ".avro"); err == nil {
		t.Error("Expand() should fail when nothing matches")
	}
}
