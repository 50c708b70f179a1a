package encoder

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/jittakal/avrobq/pkg/encoder"
)

var _ encoder.Encoder = (*GzipEncoder)(nil)

// GzipEncoder compresses each part into a single gzip member.
type GzipEncoder struct {
	level   int
	writers sync.Pool
}

// NewGzipEncoder creates a gzip encoder. level is one of the gzip
// compression levels; an invalid level falls back to the default.
func NewGzipEncoder(level int) *GzipEncoder {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}
	return &GzipEncoder{level: level}
}

// Encode compresses part. Workers share the encoder, so writers are pooled.
func (e *GzipEncoder) Encode(part *bytes.Reader) (*bytes.Reader, error) {
	var out bytes.Buffer
	out.Grow(part.Len() / 4)

	zw, ok := e.writers.Get().(*gzip.Writer)
	if ok {
		zw.Reset(&out)
	} else {
		var err error
		if zw, err = gzip.NewWriterLevel(&out, e.level); err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
	}
	defer e.writers.Put(zw)

	if _, err := io.Copy(zw, part); err != nil {
		return nil, fmt.Errorf("failed to compress part: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return bytes.NewReader(out.Bytes()), nil
}

// Compression returns "gzip".
func (e *GzipEncoder) Compression() string { return encoder.CompressionGzip }

// FileExtension returns ".json.gz".
func (e *GzipEncoder) FileExtension() string { return ".json.gz" }
