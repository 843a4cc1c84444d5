package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/dbraendle/postcraft/internal/models"
)

// QueryCreateProject creates a new project.
func (c *Client) QueryCreateProject(ctx context.Context, name string, description *string) (*models.Project, error) {
	id := uuid.NewString()

	results, err := surrealdb.Query[[]models.Project](ctx, c.db, `
		CREATE type::record("project", $id) SET
			name = $name,
			description = $description
		RETURN AFTER
	`, map[string]any{
		"id":          id,
		"name":        name,
		"description": description,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create project: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryGetProject retrieves a project by ID. Returns nil if not found.
func (c *Client) QueryGetProject(ctx context.Context, id string) (*models.Project, error) {
	results, err := surrealdb.Query[[]models.Project](ctx, c.db, `
		SELECT * FROM type::record("project", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get project: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryListProjects returns all projects, newest first.
func (c *Client) QueryListProjects(ctx context.Context) ([]models.Project, error) {
	results, err := surrealdb.Query[[]models.Project](ctx, c.db, `
		SELECT * FROM project ORDER BY created_at DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Project{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryDeleteProject deletes a project and everything hanging off it:
// sources with their chunks, jobs with their logs, the context profile,
// and generation runs with their posts. Runs in one transaction.
// Returns the number of deleted projects (0 if not found - idempotent).
func (c *Client) QueryDeleteProject(ctx context.Context, id string) (int, error) {
	sql := `
		BEGIN TRANSACTION;
		LET $p = type::record("project", $id);
		LET $sources = (SELECT VALUE id FROM source WHERE project = $p);
		LET $runs = (SELECT VALUE id FROM generation_run WHERE project = $p);
		LET $jobs = (SELECT VALUE id FROM job WHERE project = $p);
		DELETE chunk WHERE source IN $sources;
		DELETE job_log WHERE job IN $jobs;
		DELETE job WHERE id IN $jobs;
		DELETE generated_post WHERE run IN $runs;
		DELETE generation_run WHERE id IN $runs;
		DELETE context_profile WHERE project = $p;
		DELETE source WHERE id IN $sources;
		DELETE $p RETURN BEFORE;
		COMMIT TRANSACTION;
	`

	results, err := surrealdb.Query[[]models.Project](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete project: %w", wrapQueryError(err))
	}

	if results == nil {
		return 0, nil
	}
	for i := len(*results) - 1; i >= 0; i-- {
		if len((*results)[i].Result) > 0 {
			return len((*results)[i].Result), nil
		}
	}
	return 0, nil
}
