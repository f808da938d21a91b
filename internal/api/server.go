// Package api exposes a small status server for watching a run in
// progress: health, live counters and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FairForge/geniebench/internal/loadtest"
	"github.com/FairForge/geniebench/internal/monitor"
)

// StatusResponse is the /stats payload.
type StatusResponse struct {
	Running       bool    `json:"running"`
	TotalRequests int64   `json:"total_requests"`
	Successful    int64   `json:"successful_requests"`
	Failed        int64   `json:"failed_requests"`
	CurrentRPS    float64 `json:"current_rps"`
}

// Server serves run status over HTTP while a test executes.
type Server struct {
	tester  *loadtest.Tester
	monitor *monitor.Monitor
	logger  *zap.Logger
	http    *http.Server
}

// NewServer wires the status routes. registry should carry the tester's
// live metrics; pass a fresh registry if none are attached.
func NewServer(addr string, tester *loadtest.Tester, mon *monitor.Monitor, registry *prometheus.Registry, logger *zap.Logger) *Server {
	s := &Server{tester: tester, monitor: mon, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/analysis", s.handleAnalysis)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info("status server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, success, failure, rps := s.tester.CurrentStats()
	writeJSON(w, http.StatusOK, StatusResponse{
		Running:       s.tester.IsRunning(),
		TotalRequests: total,
		Successful:    success,
		Failed:        failure,
		CurrentRPS:    rps,
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.DetailedAnalysis())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
