package encoder

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/jittakal/avrobq/pkg/encoder"
)

// New creates the encoder for a compression name. An empty name stores
// parts uncompressed.
func New(compression string) (encoder.Encoder, error) {
	switch strings.ToLower(compression) {
	case "", encoder.CompressionNone, "uncompressed":
		return PlainEncoder{}, nil
	case encoder.CompressionGzip:
		return NewGzipEncoder(gzip.DefaultCompression), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s (supported: %s)",
			compression, strings.Join(SupportedCompressions(), ", "))
	}
}

// SupportedCompressions returns the accepted compression names.
func SupportedCompressions() []string {
	return []string{encoder.CompressionNone, encoder.CompressionGzip}
}
