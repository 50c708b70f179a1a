// Package encoder defines how a finished part is encoded for storage.
package encoder

import "bytes"

// Compression codecs.
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
)

// Encoder turns the rows of a finished part into the bytes stored for it.
type Encoder interface {
	// Encode returns the stored form of part. The result is seekable so a
	// failed storage write can be replayed.
	Encode(part *bytes.Reader) (*bytes.Reader, error)

	// Compression returns the codec name.
	Compression() string

	// FileExtension returns the part suffix (e.g., ".json", ".json.gz").
	FileExtension() string
}
