package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dbraendle/postcraft/internal/chunker"
	"github.com/dbraendle/postcraft/internal/llm"
	"github.com/dbraendle/postcraft/internal/metrics"
	"github.com/dbraendle/postcraft/internal/models"
)

const (
	// DefaultLockTimeout is how long a job lease is honored before another
	// worker may reclaim the job. Handlers are expected to finish well
	// inside it; there is no lease refresh.
	DefaultLockTimeout = 5 * time.Minute

	// DefaultBatchSize caps how many jobs one sweep claims and executes.
	DefaultBatchSize = 5
)

// Extractor turns a source into text. *extract.Service satisfies it.
type Extractor interface {
	Extract(ctx context.Context, source *models.Source) (string, error)
}

// ContentGenerator produces the two LLM-backed artifacts. *llm.Generator
// satisfies it.
type ContentGenerator interface {
	GenerateProfile(ctx context.Context, chunks []llm.PromptChunk) (*models.ContextProfileInput, error)
	GenerateBatch(
		ctx context.Context,
		profile *models.ContextProfile,
		chunks []llm.PromptChunk,
		tone models.TonePreset,
		strictness models.StrictnessLevel,
		hashtags models.HashtagDensity,
	) (*llm.GenerationBatch, error)
}

// Worker claims and executes pipeline jobs. Multiple workers may sweep
// concurrently; the job lease is the only mutual exclusion between them.
type Worker struct {
	id          string
	repo        Repository
	extractor   Extractor
	generator   ContentGenerator
	metrics     *metrics.Collector
	logger      *slog.Logger
	chunkCfg    chunker.Config
	lockTimeout time.Duration
	batchSize   int
	now         func() time.Time
}

// Option configures a Worker.
type Option func(*Worker)

// WithIdentity overrides the generated worker identity.
func WithIdentity(id string) Option {
	return func(w *Worker) { w.id = id }
}

// WithBatchSize overrides the per-sweep job limit.
func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batchSize = n }
}

// WithLockTimeout overrides the lease timeout used when claiming.
func WithLockTimeout(d time.Duration) Option {
	return func(w *Worker) { w.lockTimeout = d }
}

// WithChunkConfig overrides the chunking parameters.
func WithChunkConfig(cfg chunker.Config) Option {
	return func(w *Worker) { w.chunkCfg = cfg }
}

// WithClock overrides the time source. Tests use this to exercise the
// retry schedule without sleeping.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// New creates a worker with a fresh identity.
func New(
	repo Repository,
	extractor Extractor,
	generator ContentGenerator,
	collector *metrics.Collector,
	logger *slog.Logger,
	opts ...Option,
) *Worker {
	w := &Worker{
		id:          identity(),
		repo:        repo,
		extractor:   extractor,
		generator:   generator,
		metrics:     collector,
		logger:      logger,
		chunkCfg:    chunker.DefaultConfig(),
		lockTimeout: DefaultLockTimeout,
		batchSize:   DefaultBatchSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the worker's lease-holder identity.
func (w *Worker) ID() string {
	return w.id
}

// identity builds a lease-holder id that is unique per process and per
// worker instance, so a stale lease can be traced back to its holder.
func identity() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), uuid.NewString()[:8])
}

// SweepResult reports one sweep invocation.
type SweepResult struct {
	Processed int `json:"processed"`
	Errored   int `json:"errored"`
}

// RunSweep claims and executes jobs until the batch limit is reached or no
// eligible job remains. Job-level failures are counted, not returned: a
// failed job has already been released back to the queue (or terminally
// failed), and the sweep moves on.
func (w *Worker) RunSweep(ctx context.Context) (SweepResult, error) {
	start := w.now()
	var result SweepResult

	for i := 0; i < w.batchSize; i++ {
		job, err := w.repo.QueryClaimNextJob(ctx, w.id, w.now(), w.lockTimeout)
		if err != nil {
			return result, fmt.Errorf("claim next job: %w", err)
		}
		if job == nil {
			break
		}

		result.Processed++
		if err := w.ExecuteJob(ctx, job); err != nil {
			result.Errored++
		}
	}

	w.metrics.RecordTiming(metrics.OpSweep, w.now().Sub(start))
	return result, nil
}

// ExecuteJob dispatches one claimed job to its stage handler and releases
// it: to completed on success, otherwise through the retry policy. The
// returned error is the handler's failure; release bookkeeping errors are
// logged but never mask it.
func (w *Worker) ExecuteJob(ctx context.Context, job *models.Job) error {
	jobID := models.MustRecordIDString(job.ID)
	jl := newJobLogger(w.repo, w.logger, job)

	start := w.now()
	err := w.dispatch(ctx, jl, job)
	elapsed := w.now().Sub(start)

	if err == nil {
		// The LLM-backed stages record usage at the model call site.
		switch job.Type {
		case models.JobTypeExtractText, models.JobTypeChunkText:
			w.metrics.RecordTiming(string(job.Type), elapsed)
		}
		jl.Info(ctx, "job completed", map[string]any{"duration_ms": elapsed.Milliseconds()})
		if cerr := w.repo.QueryCompleteJob(ctx, jobID); cerr != nil {
			w.logger.Error("failed to mark job completed", "job", jobID, "error", cerr)
			return cerr
		}
		return nil
	}

	w.metrics.RecordFailure(string(job.Type))
	w.release(ctx, jl, job, err)
	return err
}

func (w *Worker) dispatch(ctx context.Context, jl *jobLogger, job *models.Job) error {
	switch job.Type {
	case models.JobTypeExtractText:
		return w.handleExtractText(ctx, jl, job)
	case models.JobTypeChunkText:
		return w.handleChunkText(ctx, jl, job)
	case models.JobTypeBuildProfile:
		return w.handleBuildProfile(ctx, jl, job)
	case models.JobTypeGeneratePosts:
		return w.handleGeneratePosts(ctx, jl, job)
	default:
		return fmt.Errorf("unknown job type %q", job.Type)
	}
}

// release applies the retry policy to a failed job. Attempts were already
// incremented by the claim, so a job that just failed its last allowed
// attempt fails terminally here; otherwise it goes back to pending with an
// exponential delay of 2^attempts minutes.
func (w *Worker) release(ctx context.Context, jl *jobLogger, job *models.Job, cause error) {
	jobID := models.MustRecordIDString(job.ID)
	message := cause.Error()

	if errors.Is(cause, llm.ErrFatalAPI) || job.Attempts >= job.MaxAttempts {
		jl.Error(ctx, "job failed permanently", map[string]any{
			"error":    message,
			"attempts": job.Attempts,
		})
		if err := w.repo.QueryFailJob(ctx, jobID, message); err != nil {
			w.logger.Error("failed to mark job failed", "job", jobID, "error", err)
		}
		w.failDependents(ctx, jl, job, message)
		return
	}

	delay := time.Duration(1<<uint(job.Attempts)) * time.Minute
	nextRun := w.now().Add(delay)
	jl.Warn(ctx, "job failed, scheduling retry", map[string]any{
		"error":       message,
		"attempts":    job.Attempts,
		"retry_in":    delay.String(),
		"next_run_at": nextRun.UTC().Format(time.RFC3339),
	})
	if err := w.repo.QueryScheduleRetry(ctx, jobID, message, nextRun); err != nil {
		w.logger.Error("failed to schedule retry", "job", jobID, "error", err)
	}
}

// failDependents marks the entities a terminally failed job was working on.
// A dead extract or chunk job takes its source (and that source's queued
// downstream jobs) with it; a dead generation job fails its run.
func (w *Worker) failDependents(ctx context.Context, jl *jobLogger, job *models.Job, message string) {
	if job.Source != nil {
		sourceID := models.MustRecordIDString(*job.Source)
		if err := w.repo.QueryFailSource(ctx, sourceID, message); err != nil {
			w.logger.Error("failed to mark source failed", "source", sourceID, "error", err)
		}
		count, err := w.repo.QueryFailPendingJobsForSource(ctx, sourceID, message)
		if err != nil {
			w.logger.Error("failed to fail pending jobs", "source", sourceID, "error", err)
		} else if count > 0 {
			jl.Warn(ctx, "failed queued downstream jobs", map[string]any{"source": sourceID, "count": count})
		}
	}

	if job.Run != nil {
		runID := models.MustRecordIDString(*job.Run)
		if err := w.repo.QueryUpdateRunStatus(ctx, runID, models.RunStatusFailed, &message); err != nil {
			w.logger.Error("failed to mark run failed", "run", runID, "error", err)
		}
	}
}
