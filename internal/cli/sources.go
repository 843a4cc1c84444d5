package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbraendle/postcraft/internal/models"
)

var (
	sourceURL        string
	sourceTranscript string
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage project sources",
	Long: `Manage project sources. Adding a source queues text extraction; the
pipeline then chunks it in the background.

Examples:
  postcraft sources add <project-id> notes.md
  postcraft sources add <project-id> talk.mp3 --transcript talk.txt
  postcraft sources add <project-id> --url https://example.com/post
  postcraft sources list <project-id>
  postcraft sources delete <source-id>`,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <project-id> [file]",
	Short: "Add a file or URL source to a project",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSourcesAdd,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List sources in a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesList,
}

var sourcesDeleteCmd = &cobra.Command{
	Use:   "delete <source-id>",
	Short: "Delete a source and cancel its queued work",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesDelete,
}

func init() {
	sourcesAddCmd.Flags().StringVarP(&sourceURL, "url", "u", "", "add a URL source instead of a file")
	sourcesAddCmd.Flags().StringVarP(&sourceTranscript, "transcript", "t", "", "transcript file for audio/video sources")

	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesDeleteCmd)
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	projectID := args[0]
	svc := getService()

	if sourceURL != "" {
		source, err := svc.AddURLSource(ctx, projectID, sourceURL)
		if err != nil {
			return fmt.Errorf("add url source: %w", err)
		}
		fmt.Printf("Added URL source %s, extraction queued\n", models.MustRecordIDString(source.ID))
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("either a file argument or --url is required")
	}
	path := args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var transcript *string
	if sourceTranscript != "" {
		text, err := os.ReadFile(sourceTranscript)
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}
		t := string(text)
		transcript = &t
	}

	source, err := svc.AddFileSource(ctx, projectID, filepath.Base(path), detectMimeType(path), data, transcript)
	if err != nil {
		return fmt.Errorf("add file source: %w", err)
	}

	fmt.Printf("Added source %s (%s), extraction queued\n",
		models.MustRecordIDString(source.ID), filepath.Base(path))
	return nil
}

// detectMimeType maps a file extension to a media type. Extensions the
// platform table misses are covered explicitly.
func detectMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	sources, err := getService().ListSources(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	if len(sources) == 0 {
		fmt.Println("No sources found")
		return nil
	}

	fmt.Printf("%-22s %-6s %-12s %s\n", "ID", "TYPE", "STATUS", "NAME")
	fmt.Println("----------------------------------------------------------------------")
	for _, s := range sources {
		name := ""
		switch {
		case s.OriginalName != nil:
			name = *s.OriginalName
		case s.URL != nil:
			name = *s.URL
		}
		fmt.Printf("%-22s %-6s %-12s %s\n",
			models.MustRecordIDString(s.ID), s.Type, s.Status, name)
		if s.ErrorMessage != nil && *s.ErrorMessage != "" {
			fmt.Printf("%-22s   error: %s\n", "", *s.ErrorMessage)
		}
	}
	return nil
}

func runSourcesDelete(cmd *cobra.Command, args []string) error {
	if err := getService().DeleteSource(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	fmt.Printf("Deleted source %s\n", args[0])
	return nil
}
