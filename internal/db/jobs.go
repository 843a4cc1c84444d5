package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/dbraendle/postcraft/internal/models"
)

// QueryCreateJob enqueues a new pipeline job in pending state, runnable
// immediately. Returns the created job.
func (c *Client) QueryCreateJob(ctx context.Context, input models.JobInput) (*models.Job, error) {
	id := uuid.NewString()

	sql := `
		CREATE type::record("job", $id) SET
			project = type::record("project", $project),
			source = IF $source_id THEN type::record("source", $source_id) ELSE NONE END,
			run = IF $run_id THEN type::record("generation_run", $run_id) ELSE NONE END,
			type = $type,
			status = "pending",
			attempts = 0,
			max_attempts = $max_attempts,
			next_run_at = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Job](ctx, c.db, sql, map[string]any{
		"id":           id,
		"project":      input.ProjectID,
		"source_id":    input.SourceID,
		"run_id":       input.RunID,
		"type":         string(input.Type),
		"max_attempts": models.DefaultMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create job: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryClaimNextJob atomically claims the oldest runnable job for a worker.
// A job is runnable when it is pending with next_run_at due, or processing
// with an expired lock (its worker died mid-execution). The claim runs in a
// single transaction: the candidate is selected and the conditional UPDATE
// re-checks eligibility so two workers can never claim the same job.
// Claiming increments attempts. Returns nil when no job is runnable.
func (c *Client) QueryClaimNextJob(
	ctx context.Context,
	workerID string,
	now time.Time,
	lockTimeout time.Duration,
) (*models.Job, error) {
	lockExpiry := now.Add(-lockTimeout)

	sql := `
		BEGIN TRANSACTION;
		LET $candidate = (
			SELECT VALUE id FROM job
			WHERE status IN ["pending", "processing"]
				AND next_run_at <= $now
				AND attempts < max_attempts
				AND (locked_at IS NONE OR locked_at < $lock_expiry)
			ORDER BY next_run_at ASC
			LIMIT 1
		)[0];
		UPDATE $candidate SET
			status = "processing",
			attempts += 1,
			locked_at = $now,
			locked_by = $worker
		WHERE status IN ["pending", "processing"]
			AND next_run_at <= $now
			AND (locked_at IS NONE OR locked_at < $lock_expiry)
		RETURN AFTER;
		COMMIT TRANSACTION;
	`

	results, err := surrealdb.Query[[]models.Job](ctx, c.db, sql, map[string]any{
		"now":         now,
		"lock_expiry": lockExpiry,
		"worker":      workerID,
	})
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", wrapQueryError(err))
	}

	if results == nil {
		return nil, nil
	}
	// The transaction returns one result per statement; the UPDATE is the
	// only one that yields job rows.
	for i := len(*results) - 1; i >= 0; i-- {
		if len((*results)[i].Result) > 0 {
			return &(*results)[i].Result[0], nil
		}
	}
	return nil, nil
}

// QueryCompleteJob marks a claimed job completed and releases its lock.
func (c *Client) QueryCompleteJob(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) SET
			status = "completed",
			locked_at = NONE,
			locked_by = NONE,
			error_message = NONE
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("complete job: %w", wrapQueryError(err))
	}
	return nil
}

// QueryFailJob marks a job terminally failed, records the error, and
// releases its lock.
func (c *Client) QueryFailJob(ctx context.Context, id string, message string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) SET
			status = "failed",
			error_message = $message,
			locked_at = NONE,
			locked_by = NONE
	`, map[string]any{"id": id, "message": message})
	if err != nil {
		return fmt.Errorf("fail job: %w", wrapQueryError(err))
	}
	return nil
}

// QueryScheduleRetry returns a job to pending with a future next_run_at,
// recording the error that triggered the retry and releasing the lock.
func (c *Client) QueryScheduleRetry(ctx context.Context, id string, message string, nextRunAt time.Time) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) SET
			status = "pending",
			error_message = $message,
			next_run_at = $next_run_at,
			locked_at = NONE,
			locked_by = NONE
	`, map[string]any{"id": id, "message": message, "next_run_at": nextRunAt})
	if err != nil {
		return fmt.Errorf("schedule retry: %w", wrapQueryError(err))
	}
	return nil
}

// QueryFailPendingJobsForSource terminally fails all pending jobs for a
// source. Used when an upstream stage exhausts its retries: downstream work
// for the same source can never succeed.
func (c *Client) QueryFailPendingJobsForSource(ctx context.Context, sourceID string, message string) (int, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		UPDATE job SET
			status = "failed",
			error_message = $message,
			locked_at = NONE,
			locked_by = NONE
		WHERE source = type::record("source", $source_id) AND status = "pending"
		RETURN AFTER
	`, map[string]any{"source_id": sourceID, "message": message})
	if err != nil {
		return 0, fmt.Errorf("fail pending jobs for source: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// QueryGetJob retrieves a job by ID. Returns nil if not found.
func (c *Client) QueryGetJob(ctx context.Context, id string) (*models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM type::record("job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryListJobs returns jobs newest-first with optional project and status
// filters.
func (c *Client) QueryListJobs(
	ctx context.Context,
	projectID *string,
	status *models.JobStatus,
	limit int,
) ([]models.Job, error) {
	filterClause := ""
	vars := map[string]any{"limit": limit}
	if projectID != nil {
		filterClause += " AND project = type::record(\"project\", $project)"
		vars["project"] = *projectID
	}
	if status != nil {
		filterClause += " AND status = $status"
		vars["status"] = string(*status)
	}

	sql := fmt.Sprintf(`
		SELECT * FROM job WHERE true %s ORDER BY created_at DESC LIMIT $limit
	`, filterClause)

	results, err := surrealdb.Query[[]models.Job](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Job{}, nil
	}
	return (*results)[0].Result, nil
}

// JobStatusCount represents a job status with its count.
type JobStatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// QueryJobStats returns job counts grouped by status.
func (c *Client) QueryJobStats(ctx context.Context) ([]JobStatusCount, error) {
	results, err := surrealdb.Query[[]JobStatusCount](ctx, c.db, `
		SELECT status, count() AS count FROM job GROUP BY status ORDER BY status
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []JobStatusCount{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryAppendJobLog inserts an append-only log entry for a job.
func (c *Client) QueryAppendJobLog(
	ctx context.Context,
	jobID string,
	level string,
	message string,
	meta map[string]any,
) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE job_log SET
			job = type::record("job", $job_id),
			level = $level,
			message = $message,
			meta = $meta
	`, map[string]any{
		"job_id":  jobID,
		"level":   level,
		"message": message,
		"meta":    meta,
	})
	if err != nil {
		return fmt.Errorf("append job log: %w", wrapQueryError(err))
	}
	return nil
}

// QueryListJobLogs returns a job's log entries oldest-first.
func (c *Client) QueryListJobLogs(ctx context.Context, jobID string) ([]models.JobLogEntry, error) {
	results, err := surrealdb.Query[[]models.JobLogEntry](ctx, c.db, `
		SELECT * FROM job_log WHERE job = type::record("job", $job_id) ORDER BY created_at ASC
	`, map[string]any{"job_id": jobID})
	if err != nil {
		return nil, fmt.Errorf("list job logs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.JobLogEntry{}, nil
	}
	return (*results)[0].Result, nil
}
