package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dbraendle/postcraft/internal/models"
)

// RunExport is the grouped export shape for one generation run.
type RunExport struct {
	RunID      string                 `json:"runId"`
	ProjectID  string                 `json:"projectId"`
	Status     models.RunStatus       `json:"status"`
	Tone       models.TonePreset      `json:"tone"`
	Strictness models.StrictnessLevel `json:"strictness"`
	Hashtags   models.HashtagDensity  `json:"hashtagDensity"`

	Instagram []models.GeneratedPost `json:"instagram"`
	Twitter   []models.GeneratedPost `json:"twitter"`
	LinkedIn  []models.GeneratedPost `json:"linkedin"`
}

// BuildRunExport loads a run and groups its posts by platform.
func (s *Service) BuildRunExport(ctx context.Context, runID string) (*RunExport, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	posts, err := s.repo.QueryListPostsByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	export := &RunExport{
		RunID:      runID,
		ProjectID:  models.MustRecordIDString(run.Project),
		Status:     run.Status,
		Tone:       run.TonePreset,
		Strictness: run.Strictness,
		Hashtags:   run.HashtagDensity,
	}
	for _, post := range posts {
		switch post.Platform {
		case models.PlatformInstagram:
			export.Instagram = append(export.Instagram, post)
		case models.PlatformTwitter:
			export.Twitter = append(export.Twitter, post)
		case models.PlatformLinkedIn:
			export.LinkedIn = append(export.LinkedIn, post)
		}
	}
	return export, nil
}

// ExportRunJSON renders a run's posts as indented JSON grouped by platform.
func (s *Service) ExportRunJSON(ctx context.Context, runID string) ([]byte, error) {
	export, err := s.BuildRunExport(ctx, runID)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal run export: %w", err)
	}
	return out, nil
}

// ExportRunCSV renders a run's posts as CSV, one row per post with the
// platform-specific payload flattened to text.
func (s *Service) ExportRunCSV(ctx context.Context, runID string) ([]byte, error) {
	export, err := s.BuildRunExport(ctx, runID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"platform", "type", "text", "hashtags", "citations"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	groups := [][]models.GeneratedPost{export.Instagram, export.Twitter, export.LinkedIn}
	for _, posts := range groups {
		for _, post := range posts {
			if err := w.Write(csvRow(post)); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvRow(post models.GeneratedPost) []string {
	igType := ""
	if post.InstagramType != nil {
		igType = string(*post.InstagramType)
	}

	citations := make([]string, len(post.Citations))
	for i, citation := range post.Citations {
		citations[i] = fmt.Sprintf("%s: %q", citation.ChunkID, citation.Quote)
	}

	return []string{
		string(post.Platform),
		igType,
		postText(post),
		strings.Join(payloadStrings(post.Payload, "hashtags"), " "),
		strings.Join(citations, "; "),
	}
}

// postText flattens a post payload to its display text.
func postText(post models.GeneratedPost) string {
	payload := post.Payload
	if text, ok := payload["text"].(string); ok {
		return text
	}

	caption, _ := payload["caption"].(string)
	slides, ok := payload["slides"].([]any)
	if !ok {
		return caption
	}

	parts := make([]string, 0, len(slides)+1)
	for _, raw := range slides {
		slide, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		heading, _ := slide["heading"].(string)
		body, _ := slide["body"].(string)
		parts = append(parts, fmt.Sprintf("%s: %s", heading, body))
	}
	if caption != "" {
		parts = append(parts, caption)
	}
	return strings.Join(parts, " | ")
}

func payloadStrings(payload map[string]any, key string) []string {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
