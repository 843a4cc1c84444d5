package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbraendle/postcraft/internal/models"
)

var profileWatch bool

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build or inspect a project's context profile",
	Long: `Build or inspect a project's context profile: the synthesized
audience/tone/themes/claims summary that drives generation.

Examples:
  postcraft profile build <project-id>
  postcraft profile build <project-id> --watch
  postcraft profile show <project-id>`,
}

var profileBuildCmd = &cobra.Command{
	Use:   "build <project-id>",
	Short: "Queue a context profile rebuild",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileBuild,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show the current context profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

func init() {
	profileBuildCmd.Flags().BoolVarP(&profileWatch, "watch", "w", false, "watch the job until it finishes")

	profileCmd.AddCommand(profileBuildCmd)
	profileCmd.AddCommand(profileShowCmd)
}

func runProfileBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	job, err := getService().RequestProfileBuild(ctx, args[0])
	if err != nil {
		return fmt.Errorf("request profile build: %w", err)
	}
	jobID := models.MustRecordIDString(job.ID)
	fmt.Printf("Profile build queued (job %s)\n", jobID)

	if profileWatch {
		return watchJob(jobID)
	}
	fmt.Printf("Use 'postcraft jobs %s' to check progress.\n", jobID)
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	profile, err := getService().GetProfile(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}

	fmt.Printf("Context profile for %s\n", args[0])
	fmt.Printf("  Updated:  %s\n", profile.UpdatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("  Audience: %s\n", profile.Audience)
	fmt.Printf("  Tone:     %s\n", profile.Tone)
	fmt.Printf("  Themes:   %s\n", strings.Join(profile.Themes, ", "))

	if len(profile.KeyClaims) > 0 {
		fmt.Printf("\nKey claims (%d):\n", len(profile.KeyClaims))
		for _, claim := range profile.KeyClaims {
			fmt.Printf("  - %s\n", claim.Claim)
			if verbose {
				fmt.Printf("    quote: %q\n", claim.Quote)
				fmt.Printf("    chunks: %s\n", strings.Join(claim.ChunkIDs, ", "))
			}
		}
	}
	return nil
}
