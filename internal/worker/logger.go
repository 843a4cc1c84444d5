package worker

import (
	"context"
	"log/slog"
	"sort"

	"github.com/dbraendle/postcraft/internal/models"
)

// jobLogger writes every stage transition and retry decision both to slog
// and to the job's persistent log. The persistent trail is the audit record,
// so a failed append is itself logged but never aborts the job.
type jobLogger struct {
	jobID string
	repo  Repository
	log   *slog.Logger
}

func newJobLogger(repo Repository, log *slog.Logger, job *models.Job) *jobLogger {
	jobID := models.MustRecordIDString(job.ID)
	return &jobLogger{
		jobID: jobID,
		repo:  repo,
		log:   log.With("job", jobID, "job_type", job.Type, "attempt", job.Attempts),
	}
}

func (l *jobLogger) Info(ctx context.Context, msg string, meta map[string]any) {
	l.log.Info(msg, metaArgs(meta)...)
	l.append(ctx, "info", msg, meta)
}

func (l *jobLogger) Warn(ctx context.Context, msg string, meta map[string]any) {
	l.log.Warn(msg, metaArgs(meta)...)
	l.append(ctx, "warn", msg, meta)
}

func (l *jobLogger) Error(ctx context.Context, msg string, meta map[string]any) {
	l.log.Error(msg, metaArgs(meta)...)
	l.append(ctx, "error", msg, meta)
}

func (l *jobLogger) append(ctx context.Context, level, msg string, meta map[string]any) {
	if err := l.repo.QueryAppendJobLog(ctx, l.jobID, level, msg, meta); err != nil {
		l.log.Warn("failed to append job log", "error", err)
	}
}

// metaArgs flattens meta into slog key-value pairs in stable key order.
func metaArgs(meta map[string]any) []any {
	if len(meta) == 0 {
		return nil
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(meta)*2)
	for _, k := range keys {
		args = append(args, k, meta[k])
	}
	return args
}
