// Package buffer defines the interface for accumulating output rows before
// they are written as one part.
package buffer

import (
	"bytes"

	"github.com/jittakal/avrobq/pkg/storage"
)

// Buffer accumulates newline-terminated rows for one output part.
// All implementations must be thread-safe.
type Buffer interface {
	// Add appends one row. The newline is added by the buffer.
	// Returns an error if the row would push the part past its limits.
	Add(row []byte) error

	// Drain returns the buffered content and resets the buffer. The reader
	// is seekable so an upload can be replayed.
	Drain() *bytes.Reader

	// Stats returns current part statistics without modifying the buffer.
	Stats() storage.PartStats

	// IsEmpty returns true if the buffer contains no rows.
	IsEmpty() bool

	// Reset discards the content and statistics.
	Reset()
}
