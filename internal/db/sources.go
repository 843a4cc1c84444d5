package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/dbraendle/postcraft/internal/models"
)

// QueryCreateSource registers a new source in uploaded state.
func (c *Client) QueryCreateSource(ctx context.Context, input models.SourceInput) (*models.Source, error) {
	id := uuid.NewString()

	results, err := surrealdb.Query[[]models.Source](ctx, c.db, `
		CREATE type::record("source", $id) SET
			project = type::record("project", $project),
			type = $type,
			mime_type = $mime_type,
			original_name = $original_name,
			url = $url,
			file_bytes = $file_bytes,
			transcript_text = $transcript,
			status = "uploaded"
		RETURN AFTER
	`, map[string]any{
		"id":            id,
		"project":       input.ProjectID,
		"type":          string(input.Type),
		"mime_type":     input.MimeType,
		"original_name": input.OriginalName,
		"url":           input.URL,
		"file_bytes":    input.FileBytes,
		"transcript":    input.Transcript,
	})
	if err != nil {
		return nil, fmt.Errorf("create source: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create source: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryGetSource retrieves a source by ID. Returns nil if not found.
func (c *Client) QueryGetSource(ctx context.Context, id string) (*models.Source, error) {
	results, err := surrealdb.Query[[]models.Source](ctx, c.db, `
		SELECT * FROM type::record("source", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get source: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryListSources returns a project's sources oldest-first. Insertion order
// is the stable ordering chunks inherit when assembled for profiling.
func (c *Client) QueryListSources(ctx context.Context, projectID string) ([]models.Source, error) {
	results, err := surrealdb.Query[[]models.Source](ctx, c.db, `
		SELECT * FROM source
		WHERE project = type::record("project", $project)
		ORDER BY created_at ASC
	`, map[string]any{"project": projectID})
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Source{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryUpdateSourceStatus moves a source to a new pipeline state,
// clearing any prior error.
func (c *Client) QueryUpdateSourceStatus(ctx context.Context, id string, status models.SourceStatus) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("source", $id) SET
			status = $status,
			error_message = NONE
	`, map[string]any{"id": id, "status": string(status)})
	if err != nil {
		return fmt.Errorf("update source status: %w", wrapQueryError(err))
	}
	return nil
}

// QuerySetSourceExtractedText stores extraction output and advances the
// source to extracted in one write.
func (c *Client) QuerySetSourceExtractedText(ctx context.Context, id string, text string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("source", $id) SET
			extracted_text = $text,
			status = "extracted",
			error_message = NONE
	`, map[string]any{"id": id, "text": text})
	if err != nil {
		return fmt.Errorf("set extracted text: %w", wrapQueryError(err))
	}
	return nil
}

// QueryFailSource marks a source failed with the given error message.
func (c *Client) QueryFailSource(ctx context.Context, id string, message string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("source", $id) SET
			status = "failed",
			error_message = $message
	`, map[string]any{"id": id, "message": message})
	if err != nil {
		return fmt.Errorf("fail source: %w", wrapQueryError(err))
	}
	return nil
}

// QueryDeleteSource deletes a source with its chunks and jobs.
// Returns the number of deleted sources (0 if not found - idempotent).
func (c *Client) QueryDeleteSource(ctx context.Context, id string) (int, error) {
	sql := `
		BEGIN TRANSACTION;
		LET $s = type::record("source", $id);
		LET $jobs = (SELECT VALUE id FROM job WHERE source = $s);
		DELETE chunk WHERE source = $s;
		DELETE job_log WHERE job IN $jobs;
		DELETE job WHERE id IN $jobs;
		DELETE $s RETURN BEFORE;
		COMMIT TRANSACTION;
	`

	results, err := surrealdb.Query[[]models.Source](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete source: %w", wrapQueryError(err))
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
