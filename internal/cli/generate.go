package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbraendle/postcraft/internal/models"
)

var (
	generateTone       string
	generateStrictness string
	generateHashtags   string
	generateWatch      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <project-id>",
	Short: "Start a post generation run",
	Long: `Start a generation run for a project. Produces a fixed batch of posts
(5 Instagram, 5 tweets, 5 LinkedIn) from the project's profiled sources,
every claim cited back to a source chunk.

The project needs a built context profile first; see 'postcraft profile build'.

Examples:
  postcraft generate <project-id>
  postcraft generate <project-id> --tone casual --strictness strict
  postcraft generate <project-id> --hashtags high --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateTone, "tone", string(models.ToneProfessional),
		"tone preset: professional, casual, inspirational")
	generateCmd.Flags().StringVar(&generateStrictness, "strictness", string(models.StrictnessModerate),
		"citation strictness: strict, moderate, loose")
	generateCmd.Flags().StringVar(&generateHashtags, "hashtags", string(models.HashtagMedium),
		"hashtag density: low, medium, high")
	generateCmd.Flags().BoolVarP(&generateWatch, "watch", "w", false, "watch the run's job until it finishes")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	tone, err := parseTone(generateTone)
	if err != nil {
		return err
	}
	strictness, err := parseStrictness(generateStrictness)
	if err != nil {
		return err
	}
	hashtags, err := parseHashtags(generateHashtags)
	if err != nil {
		return err
	}

	run, err := getService().StartRun(ctx, args[0], tone, strictness, hashtags)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	runID := models.MustRecordIDString(run.ID)
	fmt.Printf("Generation run %s started (tone=%s strictness=%s hashtags=%s)\n",
		runID, tone, strictness, hashtags)

	if generateWatch {
		job, err := findJobForRun(ctx, runID)
		if err != nil {
			return err
		}
		if err := watchJob(models.MustRecordIDString(job.ID)); err != nil {
			return err
		}
		return printRunPosts(ctx, runID)
	}

	fmt.Printf("Use 'postcraft runs show %s' to see the results.\n", runID)
	return nil
}

// findJobForRun locates the generate_posts job created for a run.
func findJobForRun(ctx context.Context, runID string) (*models.Job, error) {
	jobs, err := dbClient.QueryListJobs(ctx, nil, nil, 50)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	for i := range jobs {
		job := &jobs[i]
		if job.Type != models.JobTypeGeneratePosts || job.Run == nil {
			continue
		}
		if id, err := models.RecordIDString(*job.Run); err == nil && id == runID {
			return job, nil
		}
	}
	return nil, fmt.Errorf("no generation job found for run %s", runID)
}

func parseTone(s string) (models.TonePreset, error) {
	switch models.TonePreset(s) {
	case models.ToneProfessional, models.ToneCasual, models.ToneInspirational:
		return models.TonePreset(s), nil
	}
	return "", fmt.Errorf("invalid tone %q (professional, casual, inspirational)", s)
}

func parseStrictness(s string) (models.StrictnessLevel, error) {
	switch models.StrictnessLevel(s) {
	case models.StrictnessStrict, models.StrictnessModerate, models.StrictnessLoose:
		return models.StrictnessLevel(s), nil
	}
	return "", fmt.Errorf("invalid strictness %q (strict, moderate, loose)", s)
}

func parseHashtags(s string) (models.HashtagDensity, error) {
	switch models.HashtagDensity(s) {
	case models.HashtagLow, models.HashtagMedium, models.HashtagHigh:
		return models.HashtagDensity(s), nil
	}
	return "", fmt.Errorf("invalid hashtag density %q (low, medium, high)", s)
}
