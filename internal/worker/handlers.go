package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dbraendle/postcraft/internal/chunker"
	"github.com/dbraendle/postcraft/internal/llm"
	"github.com/dbraendle/postcraft/internal/models"
)

// handleExtractText runs the extraction collaborator on a source and, on
// success, queues chunking for it.
func (w *Worker) handleExtractText(ctx context.Context, jl *jobLogger, job *models.Job) error {
	if job.Source == nil {
		return fmt.Errorf("extract_text job has no source")
	}
	sourceID := models.MustRecordIDString(*job.Source)

	source, err := w.repo.QueryGetSource(ctx, sourceID)
	if err != nil {
		return err
	}
	if source == nil {
		return fmt.Errorf("source %s not found", sourceID)
	}

	jl.Info(ctx, "extracting source", map[string]any{"source": sourceID, "source_type": source.Type})
	if err := w.repo.QueryUpdateSourceStatus(ctx, sourceID, models.SourceStatusExtracting); err != nil {
		return err
	}

	text, err := w.extractor.Extract(ctx, source)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("extraction produced no text")
	}
	if err != nil {
		if ferr := w.repo.QueryFailSource(ctx, sourceID, err.Error()); ferr != nil {
			w.logger.Error("failed to mark source failed", "source", sourceID, "error", ferr)
		}
		return fmt.Errorf("extract source %s: %w", sourceID, err)
	}

	if err := w.repo.QuerySetSourceExtractedText(ctx, sourceID, text); err != nil {
		return err
	}
	jl.Info(ctx, "source extracted", map[string]any{"source": sourceID, "chars": len(text)})

	projectID := models.MustRecordIDString(job.Project)
	if _, err := w.repo.QueryCreateJob(ctx, models.JobInput{
		ProjectID: projectID,
		SourceID:  &sourceID,
		Type:      models.JobTypeChunkText,
	}); err != nil {
		return fmt.Errorf("enqueue chunk_text for source %s: %w", sourceID, err)
	}
	jl.Info(ctx, "queued chunking", map[string]any{"source": sourceID})
	return nil
}

// handleChunkText splits a source's text into chunks, replacing any chunks
// from an earlier attempt wholesale. Re-execution is safe: chunking the same
// text twice yields the same set.
func (w *Worker) handleChunkText(ctx context.Context, jl *jobLogger, job *models.Job) error {
	if job.Source == nil {
		return fmt.Errorf("chunk_text job has no source")
	}
	sourceID := models.MustRecordIDString(*job.Source)

	source, err := w.repo.QueryGetSource(ctx, sourceID)
	if err != nil {
		return err
	}
	if source == nil {
		return fmt.Errorf("source %s not found", sourceID)
	}

	text := source.Text()
	if strings.TrimSpace(text) == "" {
		err := fmt.Errorf("source %s has no extracted or transcript text", sourceID)
		if ferr := w.repo.QueryFailSource(ctx, sourceID, err.Error()); ferr != nil {
			w.logger.Error("failed to mark source failed", "source", sourceID, "error", ferr)
		}
		return err
	}

	jl.Info(ctx, "chunking source", map[string]any{"source": sourceID, "chars": len(text)})
	if err := w.repo.QueryUpdateSourceStatus(ctx, sourceID, models.SourceStatusChunking); err != nil {
		return err
	}

	pieces := chunker.Split(text, w.chunkCfg)
	inputs := make([]models.ChunkInput, len(pieces))
	for i, piece := range pieces {
		inputs[i] = models.ChunkInput{
			SourceID: sourceID,
			Index:    piece.Index,
			Content:  piece.Content,
			Hash:     piece.Hash,
			Headings: piece.Headings,
			Keywords: piece.Keywords,
		}
	}

	if _, err := w.repo.QueryReplaceChunks(ctx, sourceID, inputs); err != nil {
		return err
	}
	if err := w.repo.QueryUpdateSourceStatus(ctx, sourceID, models.SourceStatusChunked); err != nil {
		return err
	}
	jl.Info(ctx, "source chunked", map[string]any{"source": sourceID, "chunks": len(pieces)})
	return nil
}

// handleBuildProfile rebuilds the project's context profile from the whole
// chunk corpus. Sources being profiled and already-profiled sources count as
// corpus too: the profile is a wholesale rebuild over everything the project
// has, not an increment over new sources.
func (w *Worker) handleBuildProfile(ctx context.Context, jl *jobLogger, job *models.Job) error {
	projectID := models.MustRecordIDString(job.Project)

	corpusStatuses := []models.SourceStatus{
		models.SourceStatusChunked,
		models.SourceStatusProfiling,
		models.SourceStatusProfiled,
	}
	chunks, err := w.repo.QueryListProjectChunks(ctx, projectID, corpusStatuses)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunked sources to profile in project %s", projectID)
	}

	sources, err := w.repo.QueryListSources(ctx, projectID)
	if err != nil {
		return err
	}
	var pending []string
	for _, source := range sources {
		if source.Status == models.SourceStatusChunked || source.Status == models.SourceStatusProfiling {
			pending = append(pending, models.MustRecordIDString(source.ID))
		}
	}

	jl.Info(ctx, "building context profile", map[string]any{"chunks": len(chunks), "sources": len(pending)})
	for _, id := range pending {
		if err := w.repo.QueryUpdateSourceStatus(ctx, id, models.SourceStatusProfiling); err != nil {
			return err
		}
	}

	profile, err := w.generator.GenerateProfile(ctx, promptChunks(chunks))
	if err != nil {
		return err
	}

	if _, err := w.repo.QueryUpsertContextProfile(ctx, projectID, *profile); err != nil {
		return err
	}
	for _, id := range pending {
		if err := w.repo.QueryUpdateSourceStatus(ctx, id, models.SourceStatusProfiled); err != nil {
			return err
		}
	}

	jl.Info(ctx, "context profile built", map[string]any{
		"themes":     len(profile.Themes),
		"key_claims": len(profile.KeyClaims),
	})
	return nil
}

// handleGeneratePosts produces one content batch for a run and replaces any
// posts from an earlier attempt. The run stays processing across retries;
// terminal failure marks it failed via the release path.
func (w *Worker) handleGeneratePosts(ctx context.Context, jl *jobLogger, job *models.Job) error {
	if job.Run == nil {
		return fmt.Errorf("generate_posts job has no run")
	}
	runID := models.MustRecordIDString(*job.Run)

	run, err := w.repo.QueryGetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	projectID := models.MustRecordIDString(run.Project)

	profile, err := w.repo.QueryGetContextProfile(ctx, projectID)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("Context profile not found for project %s", projectID)
	}

	if err := w.repo.QueryUpdateRunStatus(ctx, runID, models.RunStatusProcessing, nil); err != nil {
		return err
	}

	chunks, err := w.repo.QueryListProjectChunks(ctx, projectID, []models.SourceStatus{models.SourceStatusProfiled})
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no profiled sources with chunks in project %s", projectID)
	}
	chunks = selectChunks(chunks, profile)

	jl.Info(ctx, "generating posts", map[string]any{
		"run":        runID,
		"chunks":     len(chunks),
		"tone":       run.TonePreset,
		"strictness": run.Strictness,
		"hashtags":   run.HashtagDensity,
	})

	batch, err := w.generator.GenerateBatch(ctx, profile, promptChunks(chunks),
		run.TonePreset, run.Strictness, run.HashtagDensity)
	if err != nil {
		return err
	}

	inputs, err := postInputs(runID, batch)
	if err != nil {
		return err
	}
	if _, err := w.repo.QueryReplacePosts(ctx, runID, inputs); err != nil {
		return err
	}
	if err := w.repo.QueryUpdateRunStatus(ctx, runID, models.RunStatusCompleted, nil); err != nil {
		return err
	}

	jl.Info(ctx, "run completed", map[string]any{"run": runID, "posts": len(inputs)})
	return nil
}

// maxGenerationChunks bounds the generation prompt on large corpora.
const maxGenerationChunks = 40

// selectChunks keeps the corpus as-is when it fits the prompt budget.
// Larger corpora are ranked against the profile's audience and themes and
// trimmed to the most relevant chunks.
func selectChunks(chunks []models.Chunk, profile *models.ContextProfile) []models.Chunk {
	if len(chunks) <= maxGenerationChunks {
		return chunks
	}

	query := strings.Join(append([]string{profile.Audience}, profile.Themes...), " ")
	scorables := make([]chunker.Scorable, len(chunks))
	byID := make(map[string]models.Chunk, len(chunks))
	for i, chunk := range chunks {
		id := models.MustRecordIDString(chunk.ID)
		scorables[i] = chunker.Scorable{
			ID:       id,
			Content:  chunk.Content,
			Headings: chunk.Headings,
			Keywords: chunk.Keywords,
		}
		byID[id] = chunk
	}

	ranked := chunker.Score(scorables, query)
	selected := make([]models.Chunk, 0, maxGenerationChunks)
	for _, scored := range ranked[:maxGenerationChunks] {
		selected = append(selected, byID[scored.ID])
	}
	return selected
}

// promptChunks converts persisted chunks into the prompt representation.
func promptChunks(chunks []models.Chunk) []llm.PromptChunk {
	out := make([]llm.PromptChunk, len(chunks))
	for i, chunk := range chunks {
		out[i] = llm.PromptChunk{
			ID:       models.MustRecordIDString(chunk.ID),
			Content:  chunk.Content,
			Headings: chunk.Headings,
		}
	}
	return out
}

// postInputs flattens a validated batch into persistable rows.
func postInputs(runID string, batch *llm.GenerationBatch) ([]models.GeneratedPostInput, error) {
	inputs := make([]models.GeneratedPostInput, 0, len(batch.Instagram)+len(batch.Tweets)+len(batch.LinkedIn))

	for _, post := range batch.Instagram {
		igType := post.Type
		var (
			payload   map[string]any
			citations []models.Citation
			err       error
		)
		switch post.Type {
		case models.InstagramCarousel:
			payload, err = payloadMap(post.Carousel)
			citations = post.Carousel.Citations
		case models.InstagramSingle:
			payload, err = payloadMap(post.Single)
			citations = post.Single.Citations
		default:
			err = fmt.Errorf("unresolved instagram post type %q", post.Type)
		}
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, models.GeneratedPostInput{
			RunID:         runID,
			Platform:      models.PlatformInstagram,
			InstagramType: &igType,
			Payload:       payload,
			Citations:     citations,
		})
	}

	for _, post := range batch.Tweets {
		payload, err := payloadMap(post)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, models.GeneratedPostInput{
			RunID:     runID,
			Platform:  models.PlatformTwitter,
			Payload:   payload,
			Citations: post.Citations,
		})
	}

	for _, post := range batch.LinkedIn {
		payload, err := payloadMap(post)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, models.GeneratedPostInput{
			RunID:     runID,
			Platform:  models.PlatformLinkedIn,
			Payload:   payload,
			Citations: post.Citations,
		})
	}

	return inputs, nil
}

func payloadMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal post payload: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode post payload: %w", err)
	}
	return m, nil
}
