// Package models defines data structures for the postcraft content pipeline.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobType identifies which pipeline stage a job executes.
type JobType string

const (
	JobTypeExtractText   JobType = "extract_text"
	JobTypeChunkText     JobType = "chunk_text"
	JobTypeBuildProfile  JobType = "build_profile"
	JobTypeGeneratePosts JobType = "generate_posts"
)

// JobStatus represents the state of a queued job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// DefaultMaxAttempts is the retry budget for new jobs.
const DefaultMaxAttempts = 3

// Job represents a persisted unit of pipeline work. Jobs are claimed by
// workers through a lease (LockedAt/LockedBy) and retried with exponential
// backoff until MaxAttempts is reached. Jobs are never deleted by the
// pipeline; they stay behind as an audit trail.
type Job struct {
	ID           surrealmodels.RecordID  `json:"id"`
	Project      surrealmodels.RecordID  `json:"project"`
	Source       *surrealmodels.RecordID `json:"source,omitempty"`
	Run          *surrealmodels.RecordID `json:"run,omitempty"`
	Type         JobType                 `json:"type"`
	Status       JobStatus               `json:"status"`
	Attempts     int                     `json:"attempts"`
	MaxAttempts  int                     `json:"max_attempts"`
	NextRunAt    time.Time               `json:"next_run_at"`
	LockedAt     *time.Time              `json:"locked_at,omitempty"`
	LockedBy     *string                 `json:"locked_by,omitempty"`
	ErrorMessage *string                 `json:"error_message,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// JobInput is the input structure for enqueuing a job.
type JobInput struct {
	ProjectID string
	SourceID  *string
	RunID     *string
	Type      JobType
}

// JobLogEntry is an append-only log record tied to a job. The pipeline only
// ever inserts these; they are the diagnostic timeline for a job's attempts.
type JobLogEntry struct {
	ID        surrealmodels.RecordID `json:"id"`
	Job       surrealmodels.RecordID `json:"job"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Meta      map[string]any         `json:"meta,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
