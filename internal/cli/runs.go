package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbraendle/postcraft/internal/models"
)

var (
	exportFormat string
	exportOutput string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect and export generation runs",
	Long: `Inspect and export generation runs.

Examples:
  postcraft runs list <project-id>
  postcraft runs show <run-id>
  postcraft runs export <run-id> --format csv --output posts.csv`,
}

var runsListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List generation runs for a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run and its generated posts",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's posts as JSON or CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

func init() {
	runsExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "export format: json or csv")
	runsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	runs, err := getService().ListRuns(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	fmt.Printf("%-22s %-12s %-14s %-10s %s\n", "ID", "STATUS", "TONE", "HASHTAGS", "CREATED")
	fmt.Println("--------------------------------------------------------------------------")
	for _, r := range runs {
		fmt.Printf("%-22s %-12s %-14s %-10s %s\n",
			models.MustRecordIDString(r.ID), r.Status, r.TonePreset, r.HashtagDensity,
			r.CreatedAt.Format("2006-01-02 15:04"))
		if r.ErrorMessage != nil && *r.ErrorMessage != "" {
			fmt.Printf("%-22s   error: %s\n", "", *r.ErrorMessage)
		}
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	runID := args[0]

	run, err := getService().GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	fmt.Printf("Run: %s\n", runID)
	fmt.Printf("  Status:     %s\n", run.Status)
	fmt.Printf("  Tone:       %s\n", run.TonePreset)
	fmt.Printf("  Strictness: %s\n", run.Strictness)
	fmt.Printf("  Hashtags:   %s\n", run.HashtagDensity)
	fmt.Printf("  Created:    %s\n", run.CreatedAt.Format("2006-01-02 15:04"))
	if run.ErrorMessage != nil && *run.ErrorMessage != "" {
		fmt.Printf("  Error:      %s\n", *run.ErrorMessage)
	}

	return printRunPosts(ctx, runID)
}

// printRunPosts lists a run's posts grouped by platform.
func printRunPosts(ctx context.Context, runID string) error {
	export, err := getService().BuildRunExport(ctx, runID)
	if err != nil {
		return fmt.Errorf("load posts: %w", err)
	}

	total := len(export.Instagram) + len(export.Twitter) + len(export.LinkedIn)
	if total == 0 {
		fmt.Println("\nNo posts yet")
		return nil
	}

	fmt.Printf("\nPosts (%d):\n", total)
	printPlatform("Instagram", export.Instagram)
	printPlatform("Twitter", export.Twitter)
	printPlatform("LinkedIn", export.LinkedIn)
	return nil
}

func printPlatform(name string, posts []models.GeneratedPost) {
	if len(posts) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", name, len(posts))
	for _, post := range posts {
		label := ""
		if post.InstagramType != nil {
			label = fmt.Sprintf("[%s] ", *post.InstagramType)
		}
		fmt.Printf("  - %s%s\n", label, postPreview(post))
		if verbose {
			for _, c := range post.Citations {
				fmt.Printf("      cites %s: %q\n", c.ChunkID, c.Quote)
			}
		}
	}
}

// postPreview renders the first line of a post's content, truncated.
func postPreview(post models.GeneratedPost) string {
	text, _ := post.Payload["text"].(string)
	if text == "" {
		text, _ = post.Payload["caption"].(string)
	}
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) > 80 {
		text = text[:77] + "..."
	}
	return text
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc := getService()

	var data []byte
	var err error
	switch exportFormat {
	case "json":
		data, err = svc.ExportRunJSON(ctx, args[0])
	case "csv":
		data, err = svc.ExportRunCSV(ctx, args[0])
	default:
		return fmt.Errorf("invalid format %q (json or csv)", exportFormat)
	}
	if err != nil {
		return fmt.Errorf("export run: %w", err)
	}

	if exportOutput == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Exported run %s to %s\n", args[0], exportOutput)
	return nil
}
