package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// KeyClaim is one sourced statement in a context profile. Quote is verbatim
// text from one of the supporting chunks.
type KeyClaim struct {
	Claim    string   `json:"claim"`
	ChunkIDs []string `json:"chunkIds"`
	Quote    string   `json:"quote"`
}

// ContextProfile is the per-project synthesized audience/tone/theme/claims
// summary that drives generation. One row per project, rebuilt wholesale on
// every build_profile run (upsert, never a partial merge).
type ContextProfile struct {
	ID        surrealmodels.RecordID `json:"id"`
	Project   surrealmodels.RecordID `json:"project"`
	Audience  string                 `json:"audience"`
	Tone      string                 `json:"tone"`
	Themes    []string               `json:"themes"`
	KeyClaims []KeyClaim             `json:"key_claims"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ContextProfileInput is the validated model output persisted by the
// build_profile stage.
type ContextProfileInput struct {
	Audience  string     `json:"audience"`
	Tone      string     `json:"tone"`
	Themes    []string   `json:"themes"`
	KeyClaims []KeyClaim `json:"keyClaims"`
}
