// Package pipeline runs a conversion job: it converts the schema, reads
// every input, renders rows and writes them as output parts.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jittakal/avrobq/internal/bqschema"
	"github.com/jittakal/avrobq/internal/buffer"
	"github.com/jittakal/avrobq/internal/config/dto"
	"github.com/jittakal/avrobq/internal/encoder"
	apperrors "github.com/jittakal/avrobq/internal/errors"
	"github.com/jittakal/avrobq/internal/jsonrow"
	"github.com/jittakal/avrobq/internal/observability"
	"github.com/jittakal/avrobq/internal/source"
	"github.com/jittakal/avrobq/internal/storage"
	"github.com/jittakal/avrobq/pkg/avro"
	pkgencoder "github.com/jittakal/avrobq/pkg/encoder"
	pkgsource "github.com/jittakal/avrobq/pkg/source"
	pkgstorage "github.com/jittakal/avrobq/pkg/storage"
)

// SchemaFileName is the name of the schema document written next to the parts.
const SchemaFileName = "schema.bqsc"

// SkipReasonTooBig labels rows dropped for exceeding the row size limit.
const SkipReasonTooBig = "too_big"

// Run phases reported by Status.
const (
	PhaseStarting = "starting"
	PhaseRunning  = "running"
	PhaseDone     = "done"
	PhaseFailed   = "failed"
)

// MetricsCollector defines metrics operations for a run.
type MetricsCollector interface {
	source.MetricsCollector
	ObserveRowWritten(source string, size int)
	IncRecordsSkipped(reason string)
	TaskStarted()
	TaskFinished(source string, seconds float64)
}

// SourceOpener creates the record source for one task.
type SourceOpener func(ctx context.Context, ref string, codec *avro.Codec) (pkgsource.Source, error)

// Config selects what a run converts.
type Config struct {
	Job        dto.JobConfig
	Processing dto.ProcessingConfig
	Kafka      dto.KafkaConfig
}

// Summary reports what a run did.
type Summary struct {
	RunID          string
	Tasks          int
	RecordsRead    int64
	RecordsWritten int64
	RecordsSkipped int64
	Parts          int64
	BytesWritten   int64
	Duration       time.Duration
}

// Runner executes one conversion job.
type Runner struct {
	config    Config
	resolver  source.Resolver
	logger    *slog.Logger
	metrics   MetricsCollector
	openKafka SourceOpener

	phase      atomic.Value
	tasksTotal atomic.Int64
	tasksDone  atomic.Int64
	read       atomic.Int64
	written    atomic.Int64
	skipped    atomic.Int64
	parts      atomic.Int64
	bytes      atomic.Int64
}

// NewRunner creates a runner. metrics may be nil.
func NewRunner(config Config, resolver source.Resolver, logger *slog.Logger, metrics MetricsCollector) *Runner {
	r := &Runner{
		config:   config,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
	r.openKafka = func(ctx context.Context, ref string, codec *avro.Codec) (pkgsource.Source, error) {
		var m source.MetricsCollector
		if r.metrics != nil {
			m = r.metrics
		}
		return source.NewKafkaSource(r.config.Kafka, ref, codec, r.logger, m)
	}
	r.phase.Store(PhaseStarting)
	return r
}

// SetKafkaOpener replaces the factory used for kafka:// inputs.
func (r *Runner) SetKafkaOpener(open SourceOpener) {
	r.openKafka = open
}

type task struct {
	index int
	ref   string
	kafka bool
}

// Run converts the schema, writes the schema document and converts every
// input. Schema faults are reported before any record is read. The first
// source or storage error cancels the remaining tasks.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := observability.WithRun(r.logger, runID)
	summary := Summary{RunID: runID}

	err := r.run(ctx, logger, &summary)
	summary.RecordsRead = r.read.Load()
	summary.RecordsWritten = r.written.Load()
	summary.RecordsSkipped = r.skipped.Load()
	summary.Parts = r.parts.Load()
	summary.BytesWritten = r.bytes.Load()
	summary.Duration = time.Since(start)

	if err != nil {
		r.phase.Store(PhaseFailed)
		logger.Error("run failed", "error", err, "duration", summary.Duration)
		return summary, err
	}
	r.phase.Store(PhaseDone)
	logger.Info("run completed",
		"tasks", summary.Tasks,
		"records_read", summary.RecordsRead,
		"records_written", summary.RecordsWritten,
		"records_skipped", summary.RecordsSkipped,
		"parts", summary.Parts,
		"bytes_written", summary.BytesWritten,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, summary *Summary) error {
	job := r.config.Job
	logger.Info("starting run",
		"schema", job.Schema,
		"inputs", job.Inputs,
		"output", job.Output,
		"workers", r.config.Processing.WorkerPoolSize,
	)

	enc, err := encoder.New(job.Compression)
	if err != nil {
		return err
	}

	codec, err := source.LoadSchema(ctx, r.resolver, job.Schema)
	if err != nil {
		return err
	}
	doc, err := bqschema.Document(codec.Schema)
	if err != nil {
		return fmt.Errorf("failed to convert schema %s: %w", job.Schema, err)
	}
	for _, n := range bqschema.NarrowedUnions(codec.Schema) {
		logger.Warn("union narrowed to its first member",
			"field", n.Path,
			"kept", n.Kept,
			"dropped", n.Dropped,
		)
	}

	router := storage.NewRouter(job.Output).WithExtension(enc.FileExtension())
	out, err := r.resolver.Resolve(ctx, job.Output)
	if err != nil {
		return err
	}
	if err := r.writeSchema(ctx, logger, doc, router); err != nil {
		return err
	}

	tasks, err := r.tasks(ctx)
	if err != nil {
		return err
	}
	summary.Tasks = len(tasks)
	r.tasksTotal.Store(int64(len(tasks)))
	r.phase.Store(PhaseRunning)

	policy := storage.NewPolicy(storage.PolicyConfig{
		MaxPartSizeBytes:  r.config.Processing.MaxPartSizeBytes(),
		MaxRecordsPerPart: r.config.Processing.MaxRecordsPerPart,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Processing.WorkerPoolSize)
	for _, t := range tasks {
		g.Go(func() error {
			return r.runTask(gctx, logger, codec, t, out, router, policy, enc)
		})
	}
	return g.Wait()
}

// writeSchema stores the schema document at job.schema_file and next to
// the parts.
func (r *Runner) writeSchema(ctx context.Context, logger *slog.Logger, doc []byte, router *storage.PartRouter) error {
	var targets []string
	if f := r.config.Job.SchemaFile; f != "" {
		targets = append(targets, f)
	}
	if p := router.SchemaPath(SchemaFileName); p != r.config.Job.SchemaFile {
		targets = append(targets, p)
	}

	for _, target := range targets {
		store, err := r.resolver.Resolve(ctx, target)
		if err != nil {
			return err
		}
		if _, err := store.Write(ctx, target, bytes.NewReader(doc)); err != nil {
			return fmt.Errorf("failed to write schema document: %w", err)
		}
		logger.Info("schema document written", "path", target)
	}
	return nil
}

// tasks expands the inputs into one task per container file or topic.
func (r *Runner) tasks(ctx context.Context) ([]task, error) {
	var tasks []task
	for _, ref := range r.config.Job.Inputs {
		if _, err := source.TopicOf(ref); err == nil {
			tasks = append(tasks, task{index: len(tasks), ref: ref, kafka: true})
			continue
		}
		paths, err := source.Expand(ctx, r.resolver, ref, r.config.Job.InputSuffix)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			tasks = append(tasks, task{index: len(tasks), ref: p})
		}
	}
	return tasks, nil
}

func (r *Runner) openSource(ctx context.Context, logger *slog.Logger, t task, codec *avro.Codec) (pkgsource.Source, error) {
	if t.kafka {
		return r.openKafka(ctx, t.ref, codec)
	}
	store, err := r.resolver.Resolve(ctx, t.ref)
	if err != nil {
		return nil, err
	}
	var m source.MetricsCollector
	if r.metrics != nil {
		m = r.metrics
	}
	return source.NewOCFSource(store, t.ref, codec, logger, m), nil
}

// runTask converts one input. Its parts are written in order, so row order
// within a part follows the source.
func (r *Runner) runTask(ctx context.Context, logger *slog.Logger, codec *avro.Codec, t task, out pkgstorage.Store, router *storage.PartRouter, policy pkgstorage.RotationPolicy, enc pkgencoder.Encoder) error {
	start := time.Now()
	if r.metrics != nil {
		r.metrics.TaskStarted()
		defer func() { r.metrics.TaskFinished(t.ref, time.Since(start).Seconds()) }()
	}
	logger = logger.With("input", t.ref, "task", t.index)
	logger.Info("task started")

	src, err := r.openSource(ctx, logger, t, codec)
	if err != nil {
		return err
	}
	defer src.Close()

	buf := buffer.New(r.config.Processing.MaxPartSizeBytes(), r.config.Processing.MaxRecordsPerPart)
	maxRow := r.config.Job.MaxRowSizeBytes
	sequence := 0

	flush := func() error {
		if buf.IsEmpty() {
			return nil
		}
		stats := buf.Stats()
		path := router.Route(t.index, sequence)
		body, err := enc.Encode(buf.Drain())
		if err != nil {
			return err
		}
		n, err := out.Write(ctx, path, body)
		if err != nil {
			return fmt.Errorf("failed to write part %s: %w", path, err)
		}
		sequence++
		r.parts.Add(1)
		r.bytes.Add(n)
		logger.Debug("part written",
			"path", path,
			"records", stats.RecordCount,
			"rows_bytes", stats.SizeBytes,
			"bytes", n,
			"compression", enc.Compression(),
		)
		return nil
	}

	var row []byte
	var read, written int64
	err = src.Each(ctx, func(rec *avro.Record) error {
		read++
		r.read.Add(1)
		row = jsonrow.Append(row[:0], rec)

		if len(row) > maxRow {
			total := r.skipped.Add(1)
			logger.Warn("skipping record too big", "length", len(row), "total_skipped", total)
			if r.metrics != nil {
				r.metrics.IncRecordsSkipped(SkipReasonTooBig)
			}
			return nil
		}

		if err := buf.Add(row); errors.Is(err, apperrors.ErrBufferFull) {
			if err := flush(); err != nil {
				return err
			}
			if err := buf.Add(row); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		written++
		r.written.Add(1)
		if r.metrics != nil {
			r.metrics.ObserveRowWritten(t.ref, len(row))
		}

		if policy.ShouldRotate(buf.Stats()) {
			return flush()
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	r.tasksDone.Add(1)
	logger.Info("task finished",
		"records_read", read,
		"records_written", written,
		"parts", sequence,
		"duration", time.Since(start),
	)
	return nil
}

// Liveness reports whether the process is alive.
func (r *Runner) Liveness() bool {
	return true
}

// Readiness reports whether the run got past schema conversion and has
// not failed.
func (r *Runner) Readiness(ctx context.Context) bool {
	phase := r.Phase()
	return phase == PhaseRunning || phase == PhaseDone
}

// Phase returns the current run phase.
func (r *Runner) Phase() string {
	return r.phase.Load().(string)
}

// Status returns progress counters for the readiness endpoint.
func (r *Runner) Status() map[string]string {
	return map[string]string{
		"phase":           r.Phase(),
		"tasks_total":     strconv.FormatInt(r.tasksTotal.Load(), 10),
		"tasks_done":      strconv.FormatInt(r.tasksDone.Load(), 10),
		"records_written": strconv.FormatInt(r.written.Load(), 10),
		"records_skipped": strconv.FormatInt(r.skipped.Load(), 10),
	}
}
