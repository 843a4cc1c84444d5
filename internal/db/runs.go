package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/dbraendle/postcraft/internal/models"
)

// QueryCreateRun creates a new generation run in pending state.
func (c *Client) QueryCreateRun(
	ctx context.Context,
	projectID string,
	tone models.TonePreset,
	strictness models.StrictnessLevel,
	hashtags models.HashtagDensity,
) (*models.GenerationRun, error) {
	id := uuid.NewString()

	results, err := surrealdb.Query[[]models.GenerationRun](ctx, c.db, `
		CREATE type::record("generation_run", $id) SET
			project = type::record("project", $project),
			tone_preset = $tone,
			strictness = $strictness,
			hashtag_density = $hashtags,
			status = "pending"
		RETURN AFTER
	`, map[string]any{
		"id":         id,
		"project":    projectID,
		"tone":       string(tone),
		"strictness": string(strictness),
		"hashtags":   string(hashtags),
	})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create run: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryGetRun retrieves a generation run by ID. Returns nil if not found.
func (c *Client) QueryGetRun(ctx context.Context, id string) (*models.GenerationRun, error) {
	results, err := surrealdb.Query[[]models.GenerationRun](ctx, c.db, `
		SELECT * FROM type::record("generation_run", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get run: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryListRuns returns a project's generation runs, newest first.
func (c *Client) QueryListRuns(ctx context.Context, projectID string) ([]models.GenerationRun, error) {
	results, err := surrealdb.Query[[]models.GenerationRun](ctx, c.db, `
		SELECT * FROM generation_run
		WHERE project = type::record("project", $project)
		ORDER BY created_at DESC
	`, map[string]any{"project": projectID})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.GenerationRun{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryUpdateRunStatus moves a run to a new state. A non-nil message is
// recorded; passing nil clears any prior error.
func (c *Client) QueryUpdateRunStatus(ctx context.Context, id string, status models.RunStatus, message *string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("generation_run", $id) SET
			status = $status,
			error_message = $message
	`, map[string]any{"id": id, "status": string(status), "message": message})
	if err != nil {
		return fmt.Errorf("update run status: %w", wrapQueryError(err))
	}
	return nil
}

// QueryReplacePosts atomically replaces a run's generated posts: any posts
// from a prior attempt are deleted before the new batch is inserted, so a
// retried generate_posts job never leaves a mixed batch behind.
func (c *Client) QueryReplacePosts(ctx context.Context, runID string, inputs []models.GeneratedPostInput) ([]models.GeneratedPost, error) {
	rows := make([]map[string]any, len(inputs))
	for i, in := range inputs {
		citations := in.Citations
		if citations == nil {
			citations = []models.Citation{}
		}
		row := map[string]any{
			"run":       surrealmodels.RecordID{Table: "generation_run", ID: runID},
			"platform":  string(in.Platform),
			"payload":   in.Payload,
			"citations": citations,
		}
		if in.InstagramType != nil {
			row["instagram_type"] = string(*in.InstagramType)
		}
		rows[i] = row
	}

	sql := `
		BEGIN TRANSACTION;
		DELETE generated_post WHERE run = type::record("generation_run", $run_id);
		INSERT INTO generated_post $rows;
		COMMIT TRANSACTION;
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"run_id": runID,
		"rows":   rows,
	})
	if err != nil {
		return nil, fmt.Errorf("replace posts: %w", wrapQueryError(err))
	}

	return c.QueryListPostsByRun(ctx, runID)
}

// QueryListPostsByRun returns a run's generated posts grouped by platform.
func (c *Client) QueryListPostsByRun(ctx context.Context, runID string) ([]models.GeneratedPost, error) {
	results, err := surrealdb.Query[[]models.GeneratedPost](ctx, c.db, `
		SELECT * FROM generated_post
		WHERE run = type::record("generation_run", $run_id)
		ORDER BY platform, instagram_type, created_at ASC
	`, map[string]any{"run_id": runID})
	if err != nil {
		return nil, fmt.Errorf("list posts by run: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.GeneratedPost{}, nil
	}
	return (*results)[0].Result, nil
}
