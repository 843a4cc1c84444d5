package llm

import (
	"fmt"
	"strings"

	"github.com/dbraendle/postcraft/internal/models"
)

// PromptChunk is the slice of chunk data that prompts need: a stable ID the
// model can cite, the text, and any headings for orientation.
type PromptChunk struct {
	ID       string
	Content  string
	Headings []string
}

// formatChunks renders chunks as delimited blocks the model can cite by ID.
func formatChunks(chunks []PromptChunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "--- chunk %s ---\n", chunk.ID)
		if len(chunk.Headings) > 0 {
			fmt.Fprintf(&b, "Headings: %s\n", strings.Join(chunk.Headings, " | "))
		}
		b.WriteString(chunk.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// ProfilePrompts builds the system and user prompts for the build_profile
// stage: synthesize audience, tone, themes, and sourced key claims from the
// project's chunks.
func ProfilePrompts(chunks []PromptChunk) (system string, user string) {
	system = `You are a content strategist analyzing source material for a brand.
Study the provided text chunks and produce a context profile as JSON with this exact shape:
{
  "audience": "who this content is written for",
  "tone": "the voice and register of the material",
  "themes": ["recurring topic", ...],
  "keyClaims": [
    {"claim": "a factual statement the material supports",
     "chunkIds": ["id of a supporting chunk", ...],
     "quote": "verbatim supporting text, at most 150 characters"}
  ]
}

Rules:
- Every claim must cite at least one chunk ID from the material.
- Quotes must be copied verbatim from the cited chunk, never paraphrased.
- Respond with the JSON object only, no commentary.`

	user = fmt.Sprintf(`Source material:

%sProduce the context profile JSON:`, formatChunks(chunks))
	return system, user
}

// toneInstructions maps a tone preset to prompt guidance.
var toneInstructions = map[models.TonePreset]string{
	models.ToneProfessional:  "Write in a polished, authoritative voice. No slang, no emoji.",
	models.ToneCasual:        "Write conversationally, like talking to a friend. Contractions are fine, light emoji use is fine.",
	models.ToneInspirational: "Write with energy and optimism. Lead with the transformation, not the mechanics.",
}

// strictnessInstructions maps a strictness level to citation guidance.
var strictnessInstructions = map[models.StrictnessLevel]string{
	models.StrictnessStrict:   "Every sentence that states a fact must be directly supported by a cited chunk. Do not extrapolate beyond the source material.",
	models.StrictnessModerate: "Stay grounded in the source material. Reasonable synthesis across chunks is allowed as long as each post cites its sources.",
	models.StrictnessLoose:    "Use the source material as inspiration. You may generalize, but each post still needs at least one citation to the chunk that inspired it.",
}

// hashtagInstructions maps a hashtag density to volume guidance.
var hashtagInstructions = map[models.HashtagDensity]string{
	models.HashtagLow:    "Use 0-2 hashtags per post.",
	models.HashtagMedium: "Use 3-5 hashtags per post.",
	models.HashtagHigh:   "Use 6-10 hashtags per post.",
}

// GenerationPrompts builds the system and user prompts for the
// generate_posts stage.
func GenerationPrompts(
	profile *models.ContextProfile,
	chunks []PromptChunk,
	tone models.TonePreset,
	strictness models.StrictnessLevel,
	hashtags models.HashtagDensity,
) (system string, user string) {
	system = fmt.Sprintf(`You are a social media writer producing one content batch from source material.

Produce JSON with this exact shape:
{
  "instagram": [five posts: exactly 2 with "type":"carousel" and exactly 3 with "type":"single"],
  "tweets": [exactly five posts],
  "linkedin": [exactly five posts]
}

Post shapes:
- carousel: {"type":"carousel","slides":[{"heading":"...","body":"..."}],"caption":"...","hashtags":[...],"citations":[...]} with 2 to 10 slides
- single: {"type":"single","caption":"...","hashtags":[...],"citations":[...]}
- tweet: {"text":"...","hashtags":[...],"citations":[...]} with text at most 280 characters including hashtags
- linkedin: {"text":"...","hashtags":[...],"citations":[...]}

Every post carries citations: [{"chunkId":"...","quote":"verbatim text from that chunk, at most 150 characters"}].

Style:
- %s
- %s
- %s

Respond with the JSON object only, no commentary.`,
		toneInstructions[tone],
		strictnessInstructions[strictness],
		hashtagInstructions[hashtags],
	)

	var b strings.Builder
	fmt.Fprintf(&b, "Context profile:\nAudience: %s\nTone of source material: %s\nThemes: %s\n\n",
		profile.Audience, profile.Tone, strings.Join(profile.Themes, ", "))
	if len(profile.KeyClaims) > 0 {
		b.WriteString("Key claims:\n")
		for _, claim := range profile.KeyClaims {
			fmt.Fprintf(&b, "- %s (chunks %s)\n", claim.Claim, strings.Join(claim.ChunkIDs, ", "))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Source material:\n\n%sProduce the content batch JSON:", formatChunks(chunks))

	return system, b.String()
}
