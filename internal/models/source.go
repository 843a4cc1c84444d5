package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SourceType distinguishes uploaded files from fetched URLs.
type SourceType string

const (
	SourceTypeFile SourceType = "file"
	SourceTypeURL  SourceType = "url"
)

// SourceStatus tracks a source through the pipeline state machine:
// uploaded -> extracting -> extracted -> chunking -> chunked -> profiled,
// with failed reachable on unrecoverable error.
type SourceStatus string

const (
	SourceStatusUploaded   SourceStatus = "uploaded"
	SourceStatusExtracting SourceStatus = "extracting"
	SourceStatusExtracted  SourceStatus = "extracted"
	SourceStatusChunking   SourceStatus = "chunking"
	SourceStatusChunked    SourceStatus = "chunked"
	SourceStatusProfiling  SourceStatus = "profiling"
	SourceStatusProfiled   SourceStatus = "profiled"
	SourceStatusFailed     SourceStatus = "failed"
)

// Source is one unit of ingested material. Stage handlers are the only
// writers and move it strictly forward through SourceStatus.
type Source struct {
	ID             surrealmodels.RecordID `json:"id"`
	Project        surrealmodels.RecordID `json:"project"`
	Type           SourceType             `json:"type"`
	MimeType       *string                `json:"mime_type,omitempty"`
	OriginalName   *string                `json:"original_name,omitempty"`
	URL            *string                `json:"url,omitempty"`
	FileBytes      []byte                 `json:"file_bytes,omitempty"`
	ExtractedText  *string                `json:"extracted_text,omitempty"`
	TranscriptText *string                `json:"transcript_text,omitempty"`
	Status         SourceStatus           `json:"status"`
	ErrorMessage   *string                `json:"error_message,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Text returns whichever of the extracted or transcript text is present.
func (s *Source) Text() string {
	if s.ExtractedText != nil && *s.ExtractedText != "" {
		return *s.ExtractedText
	}
	if s.TranscriptText != nil {
		return *s.TranscriptText
	}
	return ""
}

// SourceInput is the input structure for registering a source. Transcript
// carries caller-provided transcript text for audio/video material; when set,
// extraction passes it through instead of transcribing.
type SourceInput struct {
	ProjectID    string
	Type         SourceType
	MimeType     *string
	OriginalName *string
	URL          *string
	FileBytes    []byte
	Transcript   *string
}
