package service

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"github.com/dbraendle/postcraft/internal/models"
)

// MaxFileSize caps uploaded file sources at 50MB.
const MaxFileSize = 50 << 20

// allowedMimeTypes is the file-source allow-list. Audio and video types are
// matched by prefix below.
var allowedMimeTypes = map[string]bool{
	"text/plain":      true,
	"text/markdown":   true,
	"text/html":       true,
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/msword": true,
}

func mimeAllowed(mimeType string) bool {
	if allowedMimeTypes[mimeType] {
		return true
	}
	return strings.HasPrefix(mimeType, "audio/") || strings.HasPrefix(mimeType, "video/")
}

// AddFileSource registers a file source and queues extraction for it.
// transcript, when non-nil, is caller-provided transcript text for media
// files; extraction passes it through unchanged.
func (s *Service) AddFileSource(
	ctx context.Context,
	projectID string,
	name string,
	mimeType string,
	data []byte,
	transcript *string,
) (*models.Source, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	normalized, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMime, mimeType)
	}
	if !mimeAllowed(normalized) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMime, normalized)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %q is empty", name)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), MaxFileSize)
	}

	source, err := s.repo.QueryCreateSource(ctx, models.SourceInput{
		ProjectID:    projectID,
		Type:         models.SourceTypeFile,
		MimeType:     &normalized,
		OriginalName: &name,
		FileBytes:    data,
		Transcript:   transcript,
	})
	if err != nil {
		return nil, err
	}

	return source, s.queueExtraction(ctx, projectID, source)
}

// AddURLSource registers a URL source and queues extraction for it.
func (s *Service) AddURLSource(ctx context.Context, projectID string, rawURL string) (*models.Source, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid source url %q", rawURL)
	}

	source, err := s.repo.QueryCreateSource(ctx, models.SourceInput{
		ProjectID: projectID,
		Type:      models.SourceTypeURL,
		URL:       &rawURL,
	})
	if err != nil {
		return nil, err
	}

	return source, s.queueExtraction(ctx, projectID, source)
}

func (s *Service) queueExtraction(ctx context.Context, projectID string, source *models.Source) error {
	sourceID := models.MustRecordIDString(source.ID)
	job, err := s.repo.QueryCreateJob(ctx, models.JobInput{
		ProjectID: projectID,
		SourceID:  &sourceID,
		Type:      models.JobTypeExtractText,
	})
	if err != nil {
		return fmt.Errorf("enqueue extraction: %w", err)
	}

	s.logger.Info("source added",
		"source", sourceID, "project", projectID, "job", models.MustRecordIDString(job.ID))
	s.kick()
	return nil
}

// ListSources returns a project's sources in insertion order.
func (s *Service) ListSources(ctx context.Context, projectID string) ([]models.Source, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.QueryListSources(ctx, projectID)
}

// DeleteSource removes a source, its chunks, and its jobs. Pending jobs for
// the source are failed first so an in-flight sweep cannot resurrect work
// for a source that no longer exists.
func (s *Service) DeleteSource(ctx context.Context, id string) error {
	source, err := s.repo.QueryGetSource(ctx, id)
	if err != nil {
		return err
	}
	if source == nil {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}

	if _, err := s.repo.QueryFailPendingJobsForSource(ctx, id, "source deleted"); err != nil {
		return err
	}
	if _, err := s.repo.QueryDeleteSource(ctx, id); err != nil {
		return err
	}
	s.logger.Info("source deleted", "source", id)
	return nil
}
