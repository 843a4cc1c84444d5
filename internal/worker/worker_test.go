package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dbraendle/postcraft/internal/llm"
	"github.com/dbraendle/postcraft/internal/metrics"
	"github.com/dbraendle/postcraft/internal/models"
)

func newTestWorker(repo *fakeRepo, ext Extractor, gen ContentGenerator, clock *testClock, opts ...Option) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := []Option{WithClock(clock.Now), WithIdentity("test-worker")}
	return New(repo, ext, gen, metrics.NewCollector(), logger, append(base, opts...)...)
}

func enqueue(t *testing.T, repo *fakeRepo, input models.JobInput) string {
	t.Helper()
	job, err := repo.QueryCreateJob(context.Background(), input)
	if err != nil {
		t.Fatalf("enqueue job: %v", err)
	}
	return models.MustRecordIDString(job.ID)
}

func TestRunSweep_NoJobs(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	w := newTestWorker(repo, &fakeExtractor{}, &fakeGenerator{}, clock)

	result, err := w.RunSweep(context.Background())
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if result.Processed != 0 || result.Errored != 0 {
		t.Errorf("result = %+v, want zero", result)
	}
}

func TestRunSweep_ExtractEnqueuesChunkJob(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	sourceID := repo.addSource("p1", models.SourceStatusUploaded, "")
	jobID := enqueue(t, repo, models.JobInput{ProjectID: "p1", SourceID: &sourceID, Type: models.JobTypeExtractText})

	ext := &fakeExtractor{text: "Extracted body text."}
	w := newTestWorker(repo, ext, &fakeGenerator{}, clock)

	result, err := w.RunSweep(context.Background())
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	// The chunk job enqueued by the extract handler is claimable within
	// the same sweep.
	if result.Processed != 2 || result.Errored != 0 {
		t.Fatalf("result = %+v, want 2 processed, 0 errored", result)
	}

	if got := repo.job(jobID).Status; got != models.JobStatusCompleted {
		t.Errorf("extract job status = %s, want completed", got)
	}

	source := repo.source(sourceID)
	if source.Status != models.SourceStatusChunked {
		t.Errorf("source status = %s, want chunked", source.Status)
	}
	if source.ExtractedText == nil || *source.ExtractedText != "Extracted body text." {
		t.Errorf("extracted text not stored: %v", source.ExtractedText)
	}

	chunkJobs := repo.jobsByType(models.JobTypeChunkText)
	if len(chunkJobs) != 1 {
		t.Fatalf("chunk jobs = %d, want 1", len(chunkJobs))
	}
	if chunkJobs[0].Source == nil || chunkJobs[0].Source.ID != sourceID {
		t.Errorf("chunk job source = %v, want %s", chunkJobs[0].Source, sourceID)
	}
}

func TestRunSweep_ChunkJobPendingAfterExtract(t *testing.T) {
	// Same scenario but with batch size 1: the follow-up job must be left
	// pending for the next sweep, not silently dropped.
	clock := newTestClock()
	repo := newFakeRepo(clock)
	sourceID := repo.addSource("p1", models.SourceStatusUploaded, "")
	enqueue(t, repo, models.JobInput{ProjectID: "p1", SourceID: &sourceID, Type: models.JobTypeExtractText})

	w := newTestWorker(repo, &fakeExtractor{text: "some text"}, &fakeGenerator{}, clock, WithBatchSize(1))

	result, err := w.RunSweep(context.Background())
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("processed = %d, want 1", result.Processed)
	}

	chunkJobs := repo.jobsByType(models.JobTypeChunkText)
	if len(chunkJobs) != 1 || chunkJobs[0].Status != models.JobStatusPending {
		t.Fatalf("chunk job = %+v, want one pending", chunkJobs)
	}
}

func TestRunSweep_BatchLimit(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	ext := &fakeExtractor{text: "text"}
	for i := 0; i < 7; i++ {
		sourceID := repo.addSource("p1", models.SourceStatusUploaded, "")
		enqueue(t, repo, models.JobInput{ProjectID: "p1", SourceID: &sourceID, Type: models.JobTypeExtractText})
	}

	w := newTestWorker(repo, ext, &fakeGenerator{}, clock, WithBatchSize(5))

	result, err := w.RunSweep(context.Background())
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if result.Processed != 5 {
		t.Errorf("processed = %d, want 5", result.Processed)
	}
}

func TestRetryBackoffDoubles(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	sourceID := repo.addSource("p1", models.SourceStatusUploaded, "")
	jobID := enqueue(t, repo, models.JobInput{ProjectID: "p1", SourceID: &sourceID, Type: models.JobTypeExtractText})

	ext := &fakeExtractor{err: errors.New("fetch timed out")}
	w := newTestWorker(repo, ext, &fakeGenerator{}, clock)
	ctx := context.Background()

	result, err := w.RunSweep(ctx)
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if result.Errored != 1 {
		t.Fatalf("errored = %d, want 1", result.Errored)
	}

	job := repo.job(jobID)
	if job.Status != models.JobStatusPending {
		t.Fatalf("status after first failure = %s, want pending", job.Status)
	}
	wantNext := clock.Now().Add(2 * time.Minute)
	if !job.NextRunAt.Equal(wantNext) {
		t.Errorf("next_run_at = %v, want %v (2^1 minutes)", job.NextRunAt, wantNext)
	}
	if job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, "fetch timed out") {
		t.Errorf("error message = %v", job.ErrorMessage)
	}

	// Not yet due.
	clock.Advance(time.Minute)
	result, _ = w.RunSweep(ctx)
	if result.Processed != 0 {
		t.Fatalf("job claimed before its retry time")
	}

	// Second failure doubles the delay.
	clock.Advance(time.Minute)
	if _, err := w.RunSweep(ctx); err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	job = repo.job(jobID)
	wantNext = clock.Now().Add(4 * time.Minute)
	if !job.NextRunAt.Equal(wantNext) {
		t.Errorf("next_run_at = %v, want %v (2^2 minutes)", job.NextRunAt, wantNext)
	}
}

func TestExhaustionFailsSourceAndQueuedJobs(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	sourceID := repo.addSource("p1", models.SourceStatusUploaded, "")
	jobID := enqueue(t, repo, models.JobInput{ProjectID: "p1", SourceID: &sourceID, Type: models.JobTypeExtractText})
	downstreamID := enqueue(t, repo, models.JobInput{ProjectID: "p1", SourceID: &sourceID, Type: models.JobTypeChunkText})
	// Keep the downstream job out of the claim loop; only exhaustion may
	// touch it.
	repo.mu.Lock()
	repo.jobs[downstreamID].NextRunAt = clock.Now().Add(24 * time.Hour)
	repo.mu.Unlock()

	ext := &fakeExtractor{err: errors.New("permanent parse failure")}
	w := newTestWorker(repo, ext, &fakeGenerator{}, clock)
	ctx := context.Background()

	for i := 0; i < models.DefaultMaxAttempts; i++ {
		if _, err := w.RunSweep(ctx); err != nil {
			t.Fatalf("RunSweep: %v", err)
		}
		clock.Advance(time.Hour)
	}

	job := repo.job(jobID)
	if job.Status != models.JobStatusFailed {
		t.Fatalf("job status = %s, want failed after %d attempts", job.Status, models.DefaultMaxAttempts)
	}
	if job.Attempts != models.DefaultMaxAttempts {
		t.Errorf("attempts = %d, want %d", job.Attempts, models.DefaultMaxAttempts)
	}

	source := repo.source(sourceID)
	if source.Status != models.SourceStatusFailed {
		t.Errorf("source status = %s, want failed", source.Status)
	}
	if source.ErrorMessage == nil || !strings.Contains(*source.ErrorMessage, "permanent parse failure") {
		t.Errorf("source error = %v", source.ErrorMessage)
	}

	if got := repo.job(downstreamID).Status; got != models.JobStatusFailed {
		t.Errorf("downstream job status = %s, want failed", got)
	}
}

func TestFatalAPIErrorSkipsRetries(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	sourceID := repo.addSource("p1", models.SourceStatusChunked, "text")
	seedChunks(t, repo, sourceID, "Some chunked content here.")
	jobID := enqueue(t, repo, models.JobInput{ProjectID: "p1", Type: models.JobTypeBuildProfile})

	gen := &fakeGenerator{profileErr: fmt.Errorf("invalid api key: %w", llm.ErrFatalAPI)}
	w := newTestWorker(repo, &fakeExtractor{}, gen, clock)

	if _, err := w.RunSweep(context.Background()); err != nil {
		t.Fatalf("RunSweep: %v", err)
	}

	job := repo.job(jobID)
	if job.Status != models.JobStatusFailed {
		t.Errorf("job status = %s, want failed on first attempt", job.Status)
	}
	if job.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", job.Attempts)
	}
	if gen.profileCalls != 1 {
		t.Errorf("profile calls = %d, want 1", gen.profileCalls)
	}
}

func TestExecuteJob_WritesJobLog(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	sourceID := repo.addSource("p1", models.SourceStatusUploaded, "")
	jobID := enqueue(t, repo, models.JobInput{ProjectID: "p1", SourceID: &sourceID, Type: models.JobTypeExtractText})

	w := newTestWorker(repo, &fakeExtractor{text: "content"}, &fakeGenerator{}, clock, WithBatchSize(1))
	if _, err := w.RunSweep(context.Background()); err != nil {
		t.Fatalf("RunSweep: %v", err)
	}

	repo.mu.Lock()
	entries := repo.logs[jobID]
	repo.mu.Unlock()
	if len(entries) == 0 {
		t.Fatal("no job log entries written")
	}
	last := entries[len(entries)-1]
	if last.Message != "job completed" {
		t.Errorf("last log message = %q, want %q", last.Message, "job completed")
	}
}

func TestUnknownJobTypeFails(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	jobID := enqueue(t, repo, models.JobInput{ProjectID: "p1", Type: models.JobType("rebuild_index")})

	w := newTestWorker(repo, &fakeExtractor{}, &fakeGenerator{}, clock)
	result, err := w.RunSweep(context.Background())
	if err != nil {
		t.Fatalf("RunSweep: %v", err)
	}
	if result.Errored != 1 {
		t.Fatalf("errored = %d, want 1", result.Errored)
	}

	job := repo.job(jobID)
	if job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, "unknown job type") {
		t.Errorf("error message = %v", job.ErrorMessage)
	}
}

func TestIdentityFormat(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := New(repo, &fakeExtractor{}, &fakeGenerator{}, metrics.NewCollector(), logger)
	b := New(repo, &fakeExtractor{}, &fakeGenerator{}, metrics.NewCollector(), logger)

	if a.ID() == "" {
		t.Fatal("empty worker identity")
	}
	if a.ID() == b.ID() {
		t.Errorf("two workers share identity %q", a.ID())
	}
	if parts := strings.Split(a.ID(), "-"); len(parts) < 3 {
		t.Errorf("identity %q missing hostname-pid-suffix parts", a.ID())
	}
}

func TestKickerRunsSweep(t *testing.T) {
	clock := newTestClock()
	repo := newFakeRepo(clock)
	sourceID := repo.addSource("p1", models.SourceStatusUploaded, "")
	jobID := enqueue(t, repo, models.JobInput{ProjectID: "p1", SourceID: &sourceID, Type: models.JobTypeExtractText})

	w := newTestWorker(repo, &fakeExtractor{text: "kicked"}, &fakeGenerator{}, clock)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kicker := NewKicker(w, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	kicker.Start(ctx)

	// Multiple kicks coalesce; none may block.
	for i := 0; i < 10; i++ {
		kicker.Kick()
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if repo.job(jobID).Status == models.JobStatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job not completed by kicked sweep, status = %s", repo.job(jobID).Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	kicker.Stop()
}
