package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Chunk is a bounded, overlapping slice of a source's normalized text with
// derived metadata. Chunks are immutable: a re-chunk deletes the full set for
// a source and recreates it, never patching individual rows.
type Chunk struct {
	ID surrealmodels.RecordID `json:"id"`

	Source surrealmodels.RecordID `json:"source"`

	// Index is zero-based and contiguous per source.
	Index   int    `json:"chunk_index"`
	Content string `json:"content"`
	Hash    string `json:"hash"`

	// Headings holds markdown and informal title lines found in the chunk,
	// deduplicated, capped at 10.
	Headings []string `json:"headings"`

	// Keywords holds the chunk's most frequent non-stop-words, capped at 20.
	Keywords []string `json:"keywords"`

	CreatedAt time.Time `json:"created_at"`
}

// ChunkInput is the input structure for bulk chunk insertion.
type ChunkInput struct {
	SourceID string
	Index    int
	Content  string
	Hash     string
	Headings []string
	Keywords []string
}
