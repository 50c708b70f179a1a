package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Source metrics
	RecordsRead      *prometheus.CounterVec
	SourceErrors     *prometheus.CounterVec
	MessagesConsumed *prometheus.CounterVec

	// Processing metrics
	RecordsWritten *prometheus.CounterVec
	RecordsSkipped *prometheus.CounterVec
	RowSize        prometheus.Histogram
	TasksInFlight  prometheus.Gauge
	TaskDuration   *prometheus.HistogramVec

	// Storage metrics
	PartsWritten         *prometheus.CounterVec
	PartSize             *prometheus.HistogramVec
	StorageWriteDuration *prometheus.HistogramVec
	StorageErrors        *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		RecordsRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avrobq_records_read_total",
				Help: "Total number of records read from sources",
			},
			[]string{"source"},
		),
		SourceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avrobq_source_errors_total",
				Help: "Total number of record source errors",
			},
			[]string{"source"},
		),
		MessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avrobq_kafka_messages_consumed_total",
				Help: "Total number of messages consumed from Kafka",
			},
			[]string{"topic", "partition"},
		),

		RecordsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avrobq_records_written_total",
				Help: "Total number of JSON rows written",
			},
			[]string{"source"},
		),
		RecordsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avrobq_records_skipped_total",
				Help: "Total number of records skipped",
			},
			[]string{"reason"},
		),
		RowSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "avrobq_row_size_bytes",
				Help:    "Size of serialized JSON rows",
				Buckets: prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
			},
		),
		TasksInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "avrobq_tasks_in_flight",
				Help: "Number of input tasks currently being converted",
			},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "avrobq_task_duration_seconds",
				Help:    "Duration of input task conversions",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"source"},
		),

		PartsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avrobq_parts_written_total",
				Help: "Total number of output parts written to storage",
			},
			[]string{"backend", "status"},
		),
		PartSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "avrobq_part_size_bytes",
				Help:    "Size of output parts written to storage",
				Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 10), // 1MB to 512MB
			},
			[]string{"backend"},
		),
		StorageWriteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "avrobq_storage_write_duration_seconds",
				Help:    "Duration of storage write operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend"},
		),
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "avrobq_storage_errors_total",
				Help: "Total number of storage errors",
			},
			[]string{"backend", "operation"},
		),
	}
}

// IncRecordsRead increments records read counter.
func (m *Metrics) IncRecordsRead(source string) {
	m.RecordsRead.WithLabelValues(source).Inc()
}

// IncSourceErrors increments source errors counter.
func (m *Metrics) IncSourceErrors(source string) {
	m.SourceErrors.WithLabelValues(source).Inc()
}

// IncMessagesConsumed increments messages consumed counter.
func (m *Metrics) IncMessagesConsumed(topic string, partition int32) {
	m.MessagesConsumed.WithLabelValues(topic, strconv.Itoa(int(partition))).Inc()
}

// ObserveRowWritten counts a written row and records its size.
func (m *Metrics) ObserveRowWritten(source string, size int) {
	m.RecordsWritten.WithLabelValues(source).Inc()
	m.RowSize.Observe(float64(size))
}

// IncRecordsSkipped increments records skipped counter.
func (m *Metrics) IncRecordsSkipped(reason string) {
	m.RecordsSkipped.WithLabelValues(reason).Inc()
}

// TaskStarted marks an input task as running.
func (m *Metrics) TaskStarted() {
	m.TasksInFlight.Inc()
}

// TaskFinished marks an input task as done and records its duration.
func (m *Metrics) TaskFinished(source string, seconds float64) {
	m.TasksInFlight.Dec()
	m.TaskDuration.WithLabelValues(source).Observe(seconds)
}

// ObservePartWritten records a written output part.
func (m *Metrics) ObservePartWritten(backend string, size int64, seconds float64) {
	m.PartsWritten.WithLabelValues(backend, "success").Inc()
	m.PartSize.WithLabelValues(backend).Observe(float64(size))
	m.StorageWriteDuration.WithLabelValues(backend).Observe(seconds)
}

// IncStorageErrors increments storage errors counter.
func (m *Metrics) IncStorageErrors(backend string, operation string) {
	m.StorageErrors.WithLabelValues(backend, operation).Inc()
	if operation == "write" {
		m.PartsWritten.WithLabelValues(backend, "failure").Inc()
	}
}
