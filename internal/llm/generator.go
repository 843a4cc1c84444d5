package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/dbraendle/postcraft/internal/metrics"
	"github.com/dbraendle/postcraft/internal/models"
)

// Generator produces the pipeline's two structured artifacts: the per-project
// context profile and the per-run content batch. It owns prompt construction,
// schema validation, and LLM usage accounting.
type Generator struct {
	model       *Model
	metrics     *metrics.Collector
	maxAttempts int
}

// NewGenerator wraps a model. The collector may be nil (usage then goes
// unrecorded, e.g. in one-shot CLI invocations).
func NewGenerator(model *Model, collector *metrics.Collector) *Generator {
	return &Generator{
		model:       model,
		metrics:     collector,
		maxAttempts: DefaultStructuredAttempts,
	}
}

// GenerationBatch is one validated batch of generated posts: the fixed
// 2-carousel/3-single Instagram mix plus five tweets and five LinkedIn posts.
type GenerationBatch struct {
	Instagram []InstagramPost
	Tweets    []TextPost
	LinkedIn  []TextPost
}

// GenerateProfile synthesizes a context profile from the project's chunks.
func (g *Generator) GenerateProfile(ctx context.Context, chunks []PromptChunk) (*models.ContextProfileInput, error) {
	system, user := ProfilePrompts(chunks)

	start := time.Now()
	out, usage, err := GenerateStructured[models.ContextProfileInput](ctx, g.model, system, user, ProfileSchema, g.maxAttempts)
	g.record(metrics.OpBuildProfile, start, usage)
	if err != nil {
		return nil, fmt.Errorf("generate profile: %w", err)
	}
	return out, nil
}

// GenerateBatch produces one content batch for a run. The batch composition
// (exactly two carousels and three singles) is checked after schema
// validation; a composition violation surfaces as an error for the caller's
// retry policy rather than being silently accepted.
func (g *Generator) GenerateBatch(
	ctx context.Context,
	profile *models.ContextProfile,
	chunks []PromptChunk,
	tone models.TonePreset,
	strictness models.StrictnessLevel,
	hashtags models.HashtagDensity,
) (*GenerationBatch, error) {
	system, user := GenerationPrompts(profile, chunks, tone, strictness, hashtags)

	start := time.Now()
	out, usage, err := GenerateStructured[GenerationOutput](ctx, g.model, system, user, GenerationSchema, g.maxAttempts)
	g.record(metrics.OpGeneratePosts, start, usage)
	if err != nil {
		return nil, fmt.Errorf("generate posts: %w", err)
	}

	instagram, err := ValidateGenerationOutput(out)
	if err != nil {
		return nil, fmt.Errorf("generate posts: %w", err)
	}

	return &GenerationBatch{
		Instagram: instagram,
		Tweets:    out.Tweets,
		LinkedIn:  out.LinkedIn,
	}, nil
}

func (g *Generator) record(op string, start time.Time, usage Usage) {
	if g.metrics == nil {
		return
	}
	g.metrics.RecordLLMUsage(op, time.Since(start), usage.InputTokens, usage.OutputTokens)
}
