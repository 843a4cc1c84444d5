package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbraendle/postcraft/internal/models"
)

// CreateProject registers a new project.
func (s *Service) CreateProject(ctx context.Context, name string, description *string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}

	project, err := s.repo.QueryCreateProject(ctx, name, description)
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project", models.MustRecordIDString(project.ID), "name", name)
	return project, nil
}

// GetProject retrieves a project.
func (s *Service) GetProject(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.QueryGetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return project, nil
}

// ListProjects returns all projects.
func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.repo.QueryListProjects(ctx)
}

// DeleteProject removes a project and everything under it: sources, chunks,
// jobs, logs, profile, runs, and posts.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	count, err := s.repo.QueryDeleteProject(ctx, id)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	s.logger.Info("project deleted", "project", id)
	return nil
}
