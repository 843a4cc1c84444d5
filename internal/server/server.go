// Package server exposes the pipeline's HTTP trigger surface: an
// authenticated sweep endpoint, a health check, and runtime statistics.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dbraendle/postcraft/internal/db"
	"github.com/dbraendle/postcraft/internal/metrics"
	"github.com/dbraendle/postcraft/internal/worker"
)

// Sweeper runs one sweep over the job queue.
type Sweeper interface {
	RunSweep(ctx context.Context) (worker.SweepResult, error)
}

// JobStatser reports queue depth per job status.
type JobStatser interface {
	QueryJobStats(ctx context.Context) ([]db.JobStatusCount, error)
}

// Kicker schedules a sweep without waiting for it.
type Kicker interface {
	Kick()
}

// Server is the HTTP trigger surface.
type Server struct {
	sweeper Sweeper
	kicker  Kicker
	metrics *metrics.Collector
	stats   JobStatser
	secret  string
	logger  *slog.Logger
}

// New creates a server. secret authenticates POST /worker; an empty secret
// disables the endpoint rather than leaving it open. kicker backs the
// endpoint's wait=false mode and may be nil, forcing synchronous sweeps.
func New(sweeper Sweeper, kicker Kicker, collector *metrics.Collector, stats JobStatser, secret string, logger *slog.Logger) *Server {
	return &Server{
		sweeper: sweeper,
		kicker:  kicker,
		metrics: collector,
		stats:   stats,
		secret:  secret,
		logger:  logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /worker", s.handleSweep)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	return s.logRequests(mux)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if s.secret == "" {
		s.logger.Error("sweep rejected: worker secret not configured")
		http.Error(w, "worker secret not configured", http.StatusInternalServerError)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// wait=false hands the sweep to the background kicker so callers that
	// just enqueued a job do not sit through the sweep itself.
	if r.URL.Query().Get("wait") == "false" && s.kicker != nil {
		s.kicker.Kick()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	result, err := s.sweeper.RunSweep(r.Context())
	if err != nil {
		s.logger.Error("sweep failed", "error", err)
		http.Error(w, "sweep failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statsResponse combines collector metrics with queue depth.
type statsResponse struct {
	metrics.Snapshot
	Jobs []db.JobStatusCount `json:"jobs"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.stats.QueryJobStats(r.Context())
	if err != nil {
		s.logger.Error("job stats failed", "error", err)
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Snapshot: s.metrics.Snapshot(),
		Jobs:     jobs,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
