package encoder

import (
	"bytes"

	"github.com/jittakal/avrobq/pkg/encoder"
)

var _ encoder.Encoder = PlainEncoder{}

// PlainEncoder stores parts uncompressed.
type PlainEncoder struct{}

// Encode returns part unchanged.
func (PlainEncoder) Encode(part *bytes.Reader) (*bytes.Reader, error) {
	return part, nil
}

// Compression returns "none".
func (PlainEncoder) Compression() string { return encoder.CompressionNone }

// FileExtension returns ".json".
func (PlainEncoder) FileExtension() string { return ".json" }
