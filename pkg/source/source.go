// Package source defines interfaces for reading Avro records from job inputs.
package source

import (
	"context"

	"github.com/jittakal/avrobq/pkg/avro"
)

// RecordFunc receives one decoded record. Returning an error stops the
// iteration and is passed back to the caller of Each.
type RecordFunc func(rec *avro.Record) error

// Source yields the records of one job input in source order.
type Source interface {
	// Name identifies the input in logs and metrics.
	Name() string

	// Each calls fn for every record until the input is exhausted, fn
	// fails or ctx is cancelled.
	Each(ctx context.Context, fn RecordFunc) error

	// Close releases the resources held by the source.
	Close() error
}
