package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/dbraendle/postcraft/internal/models"
)

// QueryReplaceChunks atomically replaces a source's chunk set: the full
// existing set is deleted and the new one inserted in a single transaction.
// Re-chunking the same text is therefore idempotent and indices never leave
// gaps behind. Returns the created chunks in index order.
func (c *Client) QueryReplaceChunks(ctx context.Context, sourceID string, inputs []models.ChunkInput) ([]models.Chunk, error) {
	rows := make([]map[string]any, len(inputs))
	for i, in := range inputs {
		headings := in.Headings
		if headings == nil {
			headings = []string{}
		}
		keywords := in.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		rows[i] = map[string]any{
			"source":      surrealmodels.RecordID{Table: "source", ID: sourceID},
			"chunk_index": in.Index,
			"content":     in.Content,
			"hash":        in.Hash,
			"headings":    headings,
			"keywords":    keywords,
		}
	}

	sql := `
		BEGIN TRANSACTION;
		DELETE chunk WHERE source = type::record("source", $source_id);
		INSERT INTO chunk $rows;
		COMMIT TRANSACTION;
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"source_id": sourceID,
		"rows":      rows,
	})
	if err != nil {
		return nil, fmt.Errorf("replace chunks: %w", wrapQueryError(err))
	}

	return c.QueryListChunksBySource(ctx, sourceID)
}

// QueryListChunksBySource returns a source's chunks in index order.
func (c *Client) QueryListChunksBySource(ctx context.Context, sourceID string) ([]models.Chunk, error) {
	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		SELECT * FROM chunk
		WHERE source = type::record("source", $source_id)
		ORDER BY chunk_index ASC
	`, map[string]any{"source_id": sourceID})
	if err != nil {
		return nil, fmt.Errorf("list chunks by source: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Chunk{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryListProjectChunks assembles every chunk of a project's sources whose
// status is in the given set, ordered by source insertion order and then by
// chunk index. This is the stable corpus ordering used for profiling and
// generation.
func (c *Client) QueryListProjectChunks(
	ctx context.Context,
	projectID string,
	statuses []models.SourceStatus,
) ([]models.Chunk, error) {
	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}

	sourceIDs, err := surrealdb.Query[[]surrealmodels.RecordID](ctx, c.db, `
		SELECT VALUE id FROM source
		WHERE project = type::record("project", $project) AND status IN $statuses
		ORDER BY created_at ASC
	`, map[string]any{"project": projectID, "statuses": statusStrings})
	if err != nil {
		return nil, fmt.Errorf("list project chunks: select sources: %w", wrapQueryError(err))
	}

	if sourceIDs == nil || len(*sourceIDs) == 0 {
		return []models.Chunk{}, nil
	}

	var chunks []models.Chunk
	for _, sid := range (*sourceIDs)[0].Result {
		id, err := models.RecordIDString(sid)
		if err != nil {
			return nil, fmt.Errorf("list project chunks: %w", err)
		}
		sourceChunks, err := c.QueryListChunksBySource(ctx, id)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, sourceChunks...)
	}
	return chunks, nil
}

// QueryCountChunksBySource returns the chunk count for a source.
func (c *Client) QueryCountChunksBySource(ctx context.Context, sourceID string) (int, error) {
	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, `
		SELECT count() AS count FROM chunk
		WHERE source = type::record("source", $source_id)
		GROUP ALL
	`, map[string]any{"source_id": sourceID})
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}
