package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/dbraendle/postcraft/internal/models"
)

// QueryUpsertContextProfile replaces a project's context profile wholesale.
// The profile row is keyed by project id so rebuilds never accumulate rows.
func (c *Client) QueryUpsertContextProfile(
	ctx context.Context,
	projectID string,
	input models.ContextProfileInput,
) (*models.ContextProfile, error) {
	themes := input.Themes
	if themes == nil {
		themes = []string{}
	}
	claims := input.KeyClaims
	if claims == nil {
		claims = []models.KeyClaim{}
	}

	sql := `
		UPSERT type::record("context_profile", $project) SET
			project = type::record("project", $project),
			audience = $audience,
			tone = $tone,
			themes = $themes,
			key_claims = $key_claims,
			updated_at = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.ContextProfile](ctx, c.db, sql, map[string]any{
		"project":    projectID,
		"audience":   input.Audience,
		"tone":       input.Tone,
		"themes":     themes,
		"key_claims": claims,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert context profile: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert context profile: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryGetContextProfile retrieves a project's context profile.
// Returns nil if the project has never been profiled.
func (c *Client) QueryGetContextProfile(ctx context.Context, projectID string) (*models.ContextProfile, error) {
	results, err := surrealdb.Query[[]models.ContextProfile](ctx, c.db, `
		SELECT * FROM type::record("context_profile", $project)
	`, map[string]any{"project": projectID})
	if err != nil {
		return nil, fmt.Errorf("get context profile: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}
