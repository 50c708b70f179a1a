// Package storage defines interfaces for reading job inputs from and
// writing output parts to storage backends.
//
// Paths are full locations: a local path, file:///abs/path, gs://bucket/key,
// s3://bucket/key or wasbs://container/key. A Store only accepts the scheme
// it was built for.
package storage

import (
	"context"
	"io"
	"time"
)

// Object describes one stored object.
type Object struct {
	Path string
	Size int64
}

// Store reads and writes objects on one backend.
type Store interface {
	// Open opens the object at path for reading.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// List returns the objects at or under path in lexical order. A path
	// naming a single object lists just that object.
	List(ctx context.Context, path string) ([]Object, error)

	// Write stores the contents of r at path, replacing any existing
	// object. Returns the number of bytes written.
	Write(ctx context.Context, path string, r io.Reader) (int64, error)

	// Close releases backend clients.
	Close() error
}

// Router names the output parts of a run.
type Router interface {
	// Route returns the location of part sequence of the given input.
	Route(input, sequence int) string
}

// PartStats describes the part currently being buffered.
type PartStats struct {
	SizeBytes      int64
	RecordCount    int
	FirstWriteTime time.Time
}

// RotationPolicy determines when a buffered part is full and must be written.
type RotationPolicy interface {
	// ShouldRotate returns true if the part should be written based on stats.
	ShouldRotate(stats PartStats) bool
}
