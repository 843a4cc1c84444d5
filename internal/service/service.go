// Package service orchestrates user-triggered operations: project and source
// administration, profile builds, generation runs, and run export. Every
// operation that starts pipeline work enqueues a job and kicks a best-effort
// sweep so the work begins without waiting for the next scheduled tick.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dbraendle/postcraft/internal/db"
	"github.com/dbraendle/postcraft/internal/models"
)

// Repository is the persistence surface the service consumes. *db.Client
// satisfies it.
type Repository interface {
	QueryCreateProject(ctx context.Context, name string, description *string) (*models.Project, error)
	QueryGetProject(ctx context.Context, id string) (*models.Project, error)
	QueryListProjects(ctx context.Context) ([]models.Project, error)
	QueryDeleteProject(ctx context.Context, id string) (int, error)

	QueryCreateSource(ctx context.Context, input models.SourceInput) (*models.Source, error)
	QueryGetSource(ctx context.Context, id string) (*models.Source, error)
	QueryListSources(ctx context.Context, projectID string) ([]models.Source, error)
	QueryDeleteSource(ctx context.Context, id string) (int, error)

	QueryCreateJob(ctx context.Context, input models.JobInput) (*models.Job, error)
	QueryFailPendingJobsForSource(ctx context.Context, sourceID string, message string) (int, error)

	QueryGetContextProfile(ctx context.Context, projectID string) (*models.ContextProfile, error)

	QueryCreateRun(ctx context.Context, projectID string, tone models.TonePreset, strictness models.StrictnessLevel, hashtags models.HashtagDensity) (*models.GenerationRun, error)
	QueryGetRun(ctx context.Context, id string) (*models.GenerationRun, error)
	QueryListRuns(ctx context.Context, projectID string) ([]models.GenerationRun, error)
	QueryListPostsByRun(ctx context.Context, runID string) ([]models.GeneratedPost, error)

	QueryTakeTokens(ctx context.Context, key string, cost float64, capacity float64, refillPerMinute float64, now time.Time) (bool, float64, error)
}

var _ Repository = (*db.Client)(nil)

// Kicker triggers a best-effort background sweep. A nil kicker is valid: the
// job then waits for the next scheduled sweep.
type Kicker interface {
	Kick()
}

// Service bundles the orchestration operations.
type Service struct {
	repo   Repository
	kicker Kicker
	logger *slog.Logger
	now    func() time.Time
}

// New creates a service. kicker may be nil.
func New(repo Repository, kicker Kicker, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		kicker: kicker,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) kick() {
	if s.kicker != nil {
		s.kicker.Kick()
	}
}
