package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dbraendle/postcraft/internal/db"
	"github.com/dbraendle/postcraft/internal/metrics"
	"github.com/dbraendle/postcraft/internal/worker"
)

type stubSweeper struct {
	result worker.SweepResult
	err    error
	calls  int
}

func (s *stubSweeper) RunSweep(_ context.Context) (worker.SweepResult, error) {
	s.calls++
	return s.result, s.err
}

type stubStatser struct {
	stats []db.JobStatusCount
	err   error
}

func (s *stubStatser) QueryJobStats(_ context.Context) ([]db.JobStatusCount, error) {
	return s.stats, s.err
}

type stubKicker struct {
	kicks int
}

func (k *stubKicker) Kick() { k.kicks++ }

func newTestServer(sweeper *stubSweeper, stats *stubStatser, secret string) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(sweeper, nil, metrics.NewCollector(), stats, secret, logger)
}

func TestSweepRequiresBearerToken(t *testing.T) {
	sweeper := &stubSweeper{}
	srv := newTestServer(sweeper, &stubStatser{}, "hunter2")
	handler := srv.Handler()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic hunter2", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer hunter2", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/worker", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}

	if sweeper.calls != 1 {
		t.Errorf("expected exactly 1 sweep, got %d", sweeper.calls)
	}
}

func TestSweepFailsWithoutConfiguredSecret(t *testing.T) {
	sweeper := &stubSweeper{}
	srv := newTestServer(sweeper, &stubStatser{}, "")

	req := httptest.NewRequest(http.MethodPost, "/worker", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if sweeper.calls != 0 {
		t.Errorf("sweep ran despite missing secret")
	}
}

func TestSweepReturnsCounts(t *testing.T) {
	sweeper := &stubSweeper{result: worker.SweepResult{Processed: 3, Errored: 1}}
	srv := newTestServer(sweeper, &stubStatser{}, "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/worker", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result worker.SweepResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Processed != 3 || result.Errored != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestSweepAsyncHandsOffToKicker(t *testing.T) {
	sweeper := &stubSweeper{}
	kicker := &stubKicker{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(sweeper, kicker, metrics.NewCollector(), &stubStatser{}, "hunter2", logger)

	req := httptest.NewRequest(http.MethodPost, "/worker?wait=false", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if kicker.kicks != 1 {
		t.Errorf("expected 1 kick, got %d", kicker.kicks)
	}
	if sweeper.calls != 0 {
		t.Errorf("async request ran the sweep inline")
	}
}

func TestSweepAsyncWithoutKickerRunsInline(t *testing.T) {
	sweeper := &stubSweeper{result: worker.SweepResult{Processed: 1}}
	srv := newTestServer(sweeper, &stubStatser{}, "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/worker?wait=false", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if sweeper.calls != 1 {
		t.Errorf("expected inline sweep, got %d calls", sweeper.calls)
	}
}

func TestSweepErrorReturns500(t *testing.T) {
	sweeper := &stubSweeper{err: errors.New("db unreachable")}
	srv := newTestServer(sweeper, &stubStatser{}, "hunter2")

	req := httptest.NewRequest(http.MethodPost, "/worker", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&stubSweeper{}, &stubStatser{}, "hunter2")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestStatsIncludesJobCounts(t *testing.T) {
	stats := &stubStatser{stats: []db.JobStatusCount{
		{Status: "pending", Count: 4},
		{Status: "completed", Count: 12},
	}}
	srv := newTestServer(&stubSweeper{}, stats, "hunter2")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Jobs []db.JobStatusCount `json:"jobs"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Jobs) != 2 {
		t.Fatalf("expected 2 job stats, got %d", len(body.Jobs))
	}
	if body.Jobs[0].Status != "pending" || body.Jobs[0].Count != 4 {
		t.Errorf("unexpected first stat: %+v", body.Jobs[0])
	}
}
