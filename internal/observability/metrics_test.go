package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if metrics == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// each run registers into its own registry, so two instances must not collide
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}

func TestMetrics_Records(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.IncRecordsRead("file")
	metrics.IncRecordsRead("file")
	metrics.IncRecordsRead("kafka")
	metrics.ObserveRowWritten("file", 120)
	metrics.IncRecordsSkipped("too_big")

	if got := testutil.ToFloat64(metrics.RecordsRead.WithLabelValues("file")); got != 2 {
		t.Errorf("records read (file) = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.RecordsWritten.WithLabelValues("file")); got != 1 {
		t.Errorf("records written = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.RecordsSkipped.WithLabelValues("too_big")); got != 1 {
		t.Errorf("records skipped = %v, want 1", got)
	}
}

func TestMetrics_Tasks(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.TaskStarted()
	metrics.TaskStarted()
	metrics.TaskFinished("file", 0.5)

	if got := testutil.ToFloat64(metrics.TasksInFlight); got != 1 {
		t.Errorf("tasks in flight = %v, want 1", got)
	}
}

func TestMetrics_Storage(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.ObservePartWritten("gcs", 2048, 0.2)
	metrics.IncStorageErrors("s3", "write")
	metrics.IncStorageErrors("file", "open")

	if got := testutil.ToFloat64(metrics.PartsWritten.WithLabelValues("gcs", "success")); got != 1 {
		t.Errorf("parts written = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.PartsWritten.WithLabelValues("s3", "failure")); got != 1 {
		t.Errorf("failed parts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.StorageErrors.WithLabelValues("file", "open")); got != 1 {
		t.Errorf("storage errors = %v, want 1", got)
	}
}

func TestMetrics_IncMessagesConsumed(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.IncMessagesConsumed("events", 0)
	metrics.IncMessagesConsumed("events", 3)

	if got := testutil.ToFloat64(metrics.MessagesConsumed.WithLabelValues("events", "3")); got != 1 {
		t.Errorf("messages consumed = %v, want 1", got)
	}
}
