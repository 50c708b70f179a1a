// Package source loads the job schema and reads Avro records from object
// container files and Kafka topics.
package source

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jittakal/avrobq/internal/storage"
	"github.com/jittakal/avrobq/pkg/avro"
	pkgstorage "github.com/jittakal/avrobq/pkg/storage"
)

// Resolver returns the store serving a reference.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (pkgstorage.Store, error)
}

// MetricsCollector defines metrics operations for record sources.
type MetricsCollector interface {
	IncRecordsRead(source string)
	IncSourceErrors(source string)
	IncMessagesConsumed(topic string, partition int32)
}

// LoadSchema reads the schema text at ref and builds the run's codec.
func LoadSchema(ctx context.Context, r Resolver, ref string) (*avro.Codec, error) {
	store, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	rc, err := store.Open(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema: %w", err)
	}
	defer rc.Close()

	text, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", ref, err)
	}
	codec, err := avro.NewCodec(text)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", ref, err)
	}
	return codec, nil
}

// Expand lists the object container files named by ref. A reference to a
// single object is returned as is; a directory or prefix expands to every
// object below it whose name ends in suffix.
func Expand(ctx context.Context, r Resolver, ref, suffix string) ([]string, error) {
	store, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	objects, err := store.List(ctx, ref)
	if err != nil {
		return nil, err
	}

	if len(objects) == 1 && sameObject(objects[0].Path, ref) {
		return []string{objects[0].Path}, nil
	}

	var paths []string
	for _, obj := range objects {
		if suffix == "" || strings.HasSuffix(obj.Path, suffix) {
			paths = append(paths, obj.Path)
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s files found under %s", suffix, ref)
	}
	return paths, nil
}

func sameObject(path, ref string) bool {
	if path == ref {
		return true
	}
	loc, err := storage.ParseLocation(ref)
	return err == nil && loc.Scheme == storage.SchemeFile && loc.Key == path
}
