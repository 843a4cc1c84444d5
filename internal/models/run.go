package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// TonePreset selects the voice for a generation run.
type TonePreset string

const (
	ToneProfessional  TonePreset = "professional"
	ToneCasual        TonePreset = "casual"
	ToneInspirational TonePreset = "inspirational"
)

// StrictnessLevel controls how tightly generated claims must cite sources.
type StrictnessLevel string

const (
	StrictnessStrict   StrictnessLevel = "strict"
	StrictnessModerate StrictnessLevel = "moderate"
	StrictnessLoose    StrictnessLevel = "loose"
)

// HashtagDensity controls hashtag volume per platform.
type HashtagDensity string

const (
	HashtagLow    HashtagDensity = "low"
	HashtagMedium HashtagDensity = "medium"
	HashtagHigh   HashtagDensity = "high"
)

// RunStatus represents the state of a generation run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// GenerationRun is one invocation of content generation for a project.
// A re-run for the same run id deletes and replaces all prior posts.
type GenerationRun struct {
	ID             surrealmodels.RecordID `json:"id"`
	Project        surrealmodels.RecordID `json:"project"`
	TonePreset     TonePreset             `json:"tone_preset"`
	Strictness     StrictnessLevel        `json:"strictness"`
	HashtagDensity HashtagDensity         `json:"hashtag_density"`
	Status         RunStatus              `json:"status"`
	ErrorMessage   *string                `json:"error_message,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Platform identifies the target network of a generated post.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
)

// InstagramType distinguishes the two Instagram post variants.
type InstagramType string

const (
	InstagramCarousel InstagramType = "carousel"
	InstagramSingle   InstagramType = "single"
)

// Citation links generated content back to a source chunk with a verbatim
// quote of at most 150 characters.
type Citation struct {
	ChunkID string `json:"chunkId"`
	Quote   string `json:"quote"`
}

// GeneratedPost is one platform-specific post produced by a generation run.
// Payload carries the platform-shaped content; Citations is duplicated out of
// the payload for direct querying.
type GeneratedPost struct {
	ID            surrealmodels.RecordID `json:"id"`
	Run           surrealmodels.RecordID `json:"run"`
	Platform      Platform               `json:"platform"`
	InstagramType *InstagramType         `json:"instagram_type,omitempty"`
	Payload       map[string]any         `json:"payload"`
	Citations     []Citation             `json:"citations"`
	CreatedAt     time.Time              `json:"created_at"`
}

// GeneratedPostInput is the input structure for bulk post insertion.
type GeneratedPostInput struct {
	RunID         string
	Platform      Platform
	InstagramType *InstagramType
	Payload       map[string]any
	Citations     []Citation
}
