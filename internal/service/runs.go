package service

import (
	"context"
	"fmt"

	"github.com/dbraendle/postcraft/internal/models"
)

// RequestProfileBuild queues a context profile rebuild for a project. It
// requires at least one source that has reached the chunked (or profiled)
// state, and spends profile-build tokens from the project's bucket.
func (s *Service) RequestProfileBuild(ctx context.Context, projectID string) (*models.Job, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	sources, err := s.repo.QueryListSources(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ready := 0
	for _, source := range sources {
		switch source.Status {
		case models.SourceStatusChunked, models.SourceStatusProfiling, models.SourceStatusProfiled:
			ready++
		}
	}
	if ready == 0 {
		return nil, fmt.Errorf("%w in project %s", ErrNoChunkedSources, projectID)
	}

	if err := s.takeTokens(ctx, projectID, CostProfileBuild); err != nil {
		return nil, err
	}

	job, err := s.repo.QueryCreateJob(ctx, models.JobInput{
		ProjectID: projectID,
		Type:      models.JobTypeBuildProfile,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile build queued",
		"project", projectID, "job", models.MustRecordIDString(job.ID), "sources", ready)
	s.kick()
	return job, nil
}

// GetProfile returns a project's context profile, or ErrProfileRequired when
// none has been built yet.
func (s *Service) GetProfile(ctx context.Context, projectID string) (*models.ContextProfile, error) {
	profile, err := s.repo.QueryGetContextProfile(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w for project %s", ErrProfileRequired, projectID)
	}
	return profile, nil
}

// StartRun creates a generation run and queues post generation for it. The
// project must already have a context profile; the run spends generation
// tokens from the project's bucket.
func (s *Service) StartRun(
	ctx context.Context,
	projectID string,
	tone models.TonePreset,
	strictness models.StrictnessLevel,
	hashtags models.HashtagDensity,
) (*models.GenerationRun, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if _, err := s.GetProfile(ctx, projectID); err != nil {
		return nil, err
	}

	if err := s.takeTokens(ctx, projectID, CostGenerationRun); err != nil {
		return nil, err
	}

	run, err := s.repo.QueryCreateRun(ctx, projectID, tone, strictness, hashtags)
	if err != nil {
		return nil, err
	}
	runID := models.MustRecordIDString(run.ID)

	if _, err := s.repo.QueryCreateJob(ctx, models.JobInput{
		ProjectID: projectID,
		RunID:     &runID,
		Type:      models.JobTypeGeneratePosts,
	}); err != nil {
		return nil, fmt.Errorf("enqueue generation: %w", err)
	}

	s.logger.Info("generation run started",
		"project", projectID, "run", runID,
		"tone", tone, "strictness", strictness, "hashtags", hashtags)
	s.kick()
	return run, nil
}

// GetRun retrieves a generation run.
func (s *Service) GetRun(ctx context.Context, id string) (*models.GenerationRun, error) {
	run, err := s.repo.QueryGetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// ListRuns returns a project's runs, newest first.
func (s *Service) ListRuns(ctx context.Context, projectID string) ([]models.GenerationRun, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.QueryListRuns(ctx, projectID)
}

// ListPosts returns a run's generated posts grouped platform-stable.
func (s *Service) ListPosts(ctx context.Context, runID string) ([]models.GeneratedPost, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.QueryListPostsByRun(ctx, runID)
}
