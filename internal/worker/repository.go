// Package worker runs the pipeline: it claims queued jobs under a lease,
// dispatches them to the stage handlers, and applies the retry policy.
package worker

import (
	"context"
	"time"

	"github.com/dbraendle/postcraft/internal/db"
	"github.com/dbraendle/postcraft/internal/models"
)

// Repository is the persistence surface the worker consumes. *db.Client
// satisfies it; tests substitute an in-memory fake.
type Repository interface {
	QueryCreateJob(ctx context.Context, input models.JobInput) (*models.Job, error)
	QueryClaimNextJob(ctx context.Context, workerID string, now time.Time, lockTimeout time.Duration) (*models.Job, error)
	QueryCompleteJob(ctx context.Context, id string) error
	QueryFailJob(ctx context.Context, id string, message string) error
	QueryScheduleRetry(ctx context.Context, id string, message string, nextRunAt time.Time) error
	QueryFailPendingJobsForSource(ctx context.Context, sourceID string, message string) (int, error)
	QueryAppendJobLog(ctx context.Context, jobID string, level string, message string, meta map[string]any) error

	QueryGetSource(ctx context.Context, id string) (*models.Source, error)
	QueryListSources(ctx context.Context, projectID string) ([]models.Source, error)
	QueryUpdateSourceStatus(ctx context.Context, id string, status models.SourceStatus) error
	QuerySetSourceExtractedText(ctx context.Context, id string, text string) error
	QueryFailSource(ctx context.Context, id string, message string) error

	QueryReplaceChunks(ctx context.Context, sourceID string, inputs []models.ChunkInput) ([]models.Chunk, error)
	QueryListProjectChunks(ctx context.Context, projectID string, statuses []models.SourceStatus) ([]models.Chunk, error)

	QueryUpsertContextProfile(ctx context.Context, projectID string, input models.ContextProfileInput) (*models.ContextProfile, error)
	QueryGetContextProfile(ctx context.Context, projectID string) (*models.ContextProfile, error)

	QueryGetRun(ctx context.Context, id string) (*models.GenerationRun, error)
	QueryUpdateRunStatus(ctx context.Context, id string, status models.RunStatus, message *string) error
	QueryReplacePosts(ctx context.Context, runID string, inputs []models.GeneratedPostInput) ([]models.GeneratedPost, error)
}

var _ Repository = (*db.Client)(nil)
