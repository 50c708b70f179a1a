package server

import (
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LivenessHandler answers liveness probes. It fails only when the process
// needs a restart.
func LivenessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{Status: "alive"}
		statusCode := http.StatusOK
		if !checker.Liveness() {
			response.Status = "not alive"
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, response, logger)
	}
}

// ReadinessHandler answers readiness probes and reports run progress.
func ReadinessHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{Status: "ready", Checks: checker.Status()}
		statusCode := http.StatusOK
		if !checker.Readiness(r.Context()) {
			response.Status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, response, logger)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, response HealthResponse, logger *slog.Logger) {
	response.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}
