package source

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"

	"github.com/linkedin/goavro/v2"

	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/pkg/avro"
	"github.com/jittakal/avrobq/pkg/source"
	pkgstorage "github.com/jittakal/avrobq/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ source.Source = (*OCFSource)(nil)

// OCFSource reads one Avro object container file.
type OCFSource struct {
	store   pkgstorage.Store
	path    string
	codec   *avro.Codec
	logger  *slog.Logger
	metrics MetricsCollector
}

// NewOCFSource creates a source for the container file at path.
func NewOCFSource(store pkgstorage.Store, path string, codec *avro.Codec, logger *slog.Logger, metrics MetricsCollector) *OCFSource {
	return &OCFSource{
		store:   store,
		path:    path,
		codec:   codec,
		logger:  logger.With("source", path),
		metrics: metrics,
	}
}

// Name returns the file reference.
func (s *OCFSource) Name() string {
	return s.path
}

// Each decodes every record in the file. Data blocks are decoded with the
// schema embedded in the file and then paired with the job schema.
func (s *OCFSource) Each(ctx context.Context, fn source.RecordFunc) error {
	rc, err := s.store.Open(ctx, s.path)
	if err != nil {
		s.incErrors()
		return &apperrors.SourceError{Source: s.path, Err: err}
	}
	defer rc.Close()

	ocfr, err := goavro.NewOCFReader(bufio.NewReader(rc))
	if err != nil {
		s.incErrors()
		return &apperrors.SourceError{Source: s.path, Err: fmt.Errorf("invalid container file: %w", err)}
	}
	if ocfr.Codec().CanonicalSchema() != s.codec.Goavro.CanonicalSchema() {
		s.logger.Debug("file schema differs from job schema",
			"file_schema", ocfr.Codec().CanonicalSchema(),
		)
	}

	var offset int64
	for ocfr.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		datum, err := ocfr.Read()
		if err != nil {
			s.incErrors()
			return &apperrors.SourceError{Source: s.path, Offset: offset, Err: err}
		}
		rec, err := avro.RecordFromNative(datum, s.codec.Schema)
		if err != nil {
			s.incErrors()
			return &apperrors.SourceError{Source: s.path, Offset: offset, Err: err}
		}
		if s.metrics != nil {
			s.metrics.IncRecordsRead(s.path)
		}
		if err := fn(rec); err != nil {
			return err
		}
		offset++
	}
	if err := ocfr.Err(); err != nil {
		s.incErrors()
		return &apperrors.SourceError{Source: s.path, Offset: offset, Err: err}
	}

	s.logger.Debug("container file exhausted", "records", offset)
	return nil
}

// Close is a no-op; the file is closed when Each returns.
func (s *OCFSource) Close() error {
	return nil
}

func (s *OCFSource) incErrors() {
	if s.metrics != nil {
		s.metrics.IncSourceErrors(s.path)
	}
}
