// Package status exposes the supervisor's HTTP endpoints: a JSON status
// snapshot, health checks, and Prometheus metrics.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantfold/botkeeper/internal/supervisor"
)

// Source provides the supervisor snapshot served on /status.
type Source interface {
	Status() supervisor.Status
}

// ServerConfig holds the status server's dependencies.
type ServerConfig struct {
	Addr    string
	Version string
	Source  Source
	Logger  *slog.Logger

	// Gatherer backs /metrics. Defaults to the Prometheus default gatherer.
	Gatherer prometheus.Gatherer
}

// Server serves /status, /health and /metrics.
type Server struct {
	addr    string
	version string
	source  Source
	logger  *slog.Logger
	server  *http.Server
	router  *mux.Router
}

// statusResponse is the /status payload.
type statusResponse struct {
	Service    string            `json:"service"`
	Version    string            `json:"version"`
	Time       time.Time         `json:"time"`
	Supervisor supervisor.Status `json:"supervisor"`
}

// NewServer creates a status server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		addr:    cfg.Addr,
		version: cfg.Version,
		source:  cfg.Source,
		logger:  cfg.Logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	s.router = r

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	return s
}

// Handler returns the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleStatus serves the supervisor snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Service:    "botkeeper",
		Version:    s.version,
		Time:       time.Now().UTC(),
		Supervisor: s.source.Status(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("status_encode_failed", "error", err)
	}
}

// handleHealth handles liveness probes.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// Start starts the server in a goroutine. Use Shutdown to stop.
func (s *Server) Start() error {
	s.logger.Info("status_server_starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status_server_error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("status_server_shutting_down")
	return s.server.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.addr
}
