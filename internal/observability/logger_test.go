package observability

import (
	"bytes"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
	}{
		{"json format", LoggingConfig{Level: "info", Format: "json"}},
		{"text format", LoggingConfig{Level: "debug", Format: "text"}},
		{"default format", LoggingConfig{Level: "warn"}},
		{"stdout output", LoggingConfig{Level: "error", Output: "stdout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if logger := NewLogger(tt.config); logger == nil {
				t.Fatal("NewLogger returned nil")
			}
		})
	}
}

func TestNewLogger_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "info", Format: "json", Writer: &buf})

	WithRun(logger, "run-1").Info("skipping record too big", "length", 10, "total_skipped", 1)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["msg"] != "skipping record too big" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", line["run_id"])
	}
	if line["total_skipped"] != float64(1) {
		t.Errorf("total_skipped = %v, want 1", line["total_skipped"])
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warning", false, false},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(LoggingConfig{Level: tt.level, Format: "text", Writer: &buf})
			logger.Debug("debug line")
			logger.Info("info line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.debugSeen {
				t.Errorf("debug visible = %v, want %v", got, tt.debugSeen)
			}
			if got := strings.Contains(out, "info line"); got != tt.infoSeen {
				t.Errorf("info visible = %v, want %v", got, tt.infoSeen)
			}
		})
	}
}
