// Package encoder implements the part encoders.
//
// Parts are newline-delimited JSON. They are stored either as is or gzip
// compressed, which BigQuery load jobs read transparently. Compression is
// applied to a whole part after it has been buffered, so rotation limits
// apply to the uncompressed size.
//
// Usage:
//
//	enc, err := encoder.New(cfg.Job.Compression)
//	if err != nil {
//		return err
//	}
//	body, err := enc.Encode(buf.Drain())
package encoder
