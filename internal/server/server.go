// Package server implements the HTTP endpoints that expose run health and
// metrics while a job is running.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports the state of a run.
type HealthChecker interface {
	Liveness() bool
	Readiness(ctx context.Context) bool
	Status() map[string]string
}

// Config configures the listeners and paths.
type Config struct {
	HealthPort    int
	LivenessPath  string
	ReadinessPath string
	MetricsPort   int
	MetricsPath   string
}

// Server serves health probes and Prometheus metrics on separate ports.
type Server struct {
	healthServer  *http.Server
	metricsServer *http.Server
	listeners     []net.Listener
	logger        *slog.Logger
}

// NewServer creates the health and metrics servers.
func NewServer(cfg Config, checker HealthChecker, registry *prometheus.Registry, logger *slog.Logger) *Server {
	return &Server{
		healthServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HealthPort),
			Handler:      HealthMux(cfg, checker, logger),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		metricsServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:      MetricsMux(cfg, registry),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// HealthMux routes the liveness and readiness probes.
func HealthMux(cfg Config, checker HealthChecker, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+cfg.LivenessPath, LivenessHandler(checker, logger))
	mux.HandleFunc("GET "+cfg.ReadinessPath, ReadinessHandler(checker, logger))
	return mux
}

// MetricsMux routes the Prometheus scrape endpoint.
func MetricsMux(cfg Config, registry *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

// Start binds both listeners and serves in the background. Bind errors are
// returned immediately.
func (s *Server) Start() error {
	for _, srv := range []*http.Server{s.healthServer, s.metricsServer} {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, open := range s.listeners {
				open.Close()
			}
			s.listeners = nil
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
		}
		s.listeners = append(s.listeners, ln)

		go func(srv *http.Server, ln net.Listener) {
			s.logger.Info("starting http server", "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("http server failed", "addr", ln.Addr().String(), "error", err)
			}
		}(srv, ln)
	}
	return nil
}

// Addrs returns the bound health and metrics addresses after Start.
func (s *Server) Addrs() (health, metrics string) {
	if len(s.listeners) != 2 {
		return "", ""
	}
	return s.listeners[0].Addr().String(), s.listeners[1].Addr().String()
}

// Shutdown gracefully shuts down both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP servers")

	errChan := make(chan error, 2)
	go func() {
		errChan <- s.healthServer.Shutdown(ctx)
	}()
	go func() {
		errChan <- s.metricsServer.Shutdown(ctx)
	}()

	var lastErr error
	for i := 0; i < 2; i++ {
		if err := <-errChan; err != nil {
			s.logger.Error("error shutting down server", "error", err)
			lastErr = err
		}
	}
	return lastErr
}
