// Package extract turns raw sources (uploaded files, URLs, media) into plain
// text for chunking.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/documentloaders"

	"github.com/dbraendle/postcraft/internal/models"
)

// maxFetchBytes caps how much of a URL body is read.
const maxFetchBytes = 10 << 20 // 10 MB

var (
	// ErrUnsupportedType means no extractor handles the source's MIME type.
	ErrUnsupportedType = errors.New("unsupported source type")

	// ErrNotConfigured means the source needs an optional collaborator
	// (transcriber, document converter) that was not wired in.
	ErrNotConfigured = errors.New("extractor not configured")
)

// Transcriber converts audio/video bytes into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
}

// DocumentConverter converts binary documents (PDF, Word) into plain text.
type DocumentConverter interface {
	Convert(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Service dispatches a source to the right extractor by type and MIME.
type Service struct {
	client      *http.Client
	transcriber Transcriber
	converter   DocumentConverter
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient overrides the URL fetch client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) { s.client = client }
}

// WithTranscriber wires in audio/video transcription.
func WithTranscriber(t Transcriber) Option {
	return func(s *Service) { s.transcriber = t }
}

// WithConverter wires in binary document conversion.
func WithConverter(c DocumentConverter) Option {
	return func(s *Service) { s.converter = c }
}

// NewService creates an extraction service.
func NewService(opts ...Option) *Service {
	s := &Service{
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract produces plain text for a source. Sources that already carry a
// transcript pass it through untouched.
func (s *Service) Extract(ctx context.Context, source *models.Source) (string, error) {
	if source.TranscriptText != nil && *source.TranscriptText != "" {
		return *source.TranscriptText, nil
	}

	switch source.Type {
	case models.SourceTypeURL:
		if source.URL == nil || *source.URL == "" {
			return "", fmt.Errorf("url source has no url")
		}
		return s.extractURL(ctx, *source.URL)

	case models.SourceTypeFile:
		return s.extractFile(ctx, source)

	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, source.Type)
	}
}

func (s *Service) extractFile(ctx context.Context, source *models.Source) (string, error) {
	if len(source.FileBytes) == 0 {
		return "", fmt.Errorf("file source has no bytes")
	}

	mimeType := ""
	if source.MimeType != nil {
		mimeType = normalizeMime(*source.MimeType)
	}

	switch {
	case mimeType == "text/plain", mimeType == "text/markdown":
		return string(source.FileBytes), nil

	case mimeType == "text/html":
		return htmlToText(ctx, bytes.NewReader(source.FileBytes))

	case mimeType == "application/pdf",
		mimeType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		mimeType == "application/msword":
		if s.converter == nil {
			return "", fmt.Errorf("%w: no document converter for %s", ErrNotConfigured, mimeType)
		}
		return s.converter.Convert(ctx, source.FileBytes, mimeType)

	case strings.HasPrefix(mimeType, "audio/"), strings.HasPrefix(mimeType, "video/"):
		if s.transcriber == nil {
			return "", fmt.Errorf("%w: no transcriber for %s", ErrNotConfigured, mimeType)
		}
		return s.transcriber.Transcribe(ctx, source.FileBytes, mimeType)

	default:
		return "", fmt.Errorf("%w: mime %q", ErrUnsupportedType, mimeType)
	}
}

func (s *Service) extractURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "postcraft/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch url: status %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxFetchBytes)
	contentType := normalizeMime(resp.Header.Get("Content-Type"))

	switch {
	case contentType == "" || strings.Contains(contentType, "html"):
		return htmlToText(ctx, body)
	case strings.HasPrefix(contentType, "text/"):
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: content-type %q", ErrUnsupportedType, contentType)
	}
}

// htmlToText strips markup via the langchaingo HTML loader.
func htmlToText(ctx context.Context, r io.Reader) (string, error) {
	docs, err := documentloaders.NewHTML(r).Load(ctx)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var parts []string
	for _, doc := range docs {
		if text := strings.TrimSpace(doc.PageContent); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// normalizeMime drops parameters like charset and lowercases the type.
func normalizeMime(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
