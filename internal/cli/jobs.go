package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbraendle/postcraft/internal/models"
)

var (
	jobsProject string
	jobsStatus  string
	jobsLimit   int
	jobsWatch   bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect pipeline jobs",
	Long: `List all pipeline jobs or inspect a specific job by ID.

Examples:
  postcraft jobs                      # List recent jobs
  postcraft jobs --status failed      # List failed jobs
  postcraft jobs abc123               # Show details for job abc123
  postcraft jobs abc123 --watch       # Follow job abc123 until it finishes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().StringVarP(&jobsProject, "project", "p", "", "filter by project ID")
	jobsCmd.Flags().StringVarP(&jobsStatus, "status", "s", "", "filter by status (pending, processing, completed, failed)")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 25, "maximum number of jobs to list")
	jobsCmd.Flags().BoolVarP(&jobsWatch, "watch", "w", false, "follow the job until it reaches a terminal state")

	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		if jobsWatch {
			return watchJob(args[0])
		}
		return showJob(ctx, args[0])
	}

	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	var project *string
	if jobsProject != "" {
		project = &jobsProject
	}
	var status *models.JobStatus
	if jobsStatus != "" {
		s := models.JobStatus(jobsStatus)
		status = &s
	}

	jobs, err := dbClient.QueryListJobs(ctx, project, status, jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-22s %-15s %-12s %-9s %s\n", "ID", "TYPE", "STATUS", "ATTEMPTS", "NEXT RUN")
	fmt.Println("--------------------------------------------------------------------------")
	for _, job := range jobs {
		nextRun := ""
		if job.Status == models.JobStatusPending {
			nextRun = job.NextRunAt.Format("15:04:05")
		}
		fmt.Printf("%-22s %-15s %-12s %d/%-7d %s\n",
			models.MustRecordIDString(job.ID), job.Type, job.Status,
			job.Attempts, job.MaxAttempts, nextRun)
	}
	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := dbClient.QueryGetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", id)
	}

	fmt.Printf("Job: %s\n", id)
	fmt.Printf("  Type:     %s\n", job.Type)
	fmt.Printf("  Status:   %s\n", job.Status)
	fmt.Printf("  Attempts: %d/%d\n", job.Attempts, job.MaxAttempts)
	fmt.Printf("  Created:  %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.Status == models.JobStatusPending {
		fmt.Printf("  Next run: %s\n", job.NextRunAt.Format(time.RFC3339))
	}
	if job.LockedBy != nil {
		fmt.Printf("  Locked by: %s\n", *job.LockedBy)
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		fmt.Printf("  Error:    %s\n", *job.ErrorMessage)
	}

	logs, err := dbClient.QueryListJobLogs(ctx, id)
	if err != nil {
		return fmt.Errorf("list job logs: %w", err)
	}
	if len(logs) > 0 {
		fmt.Printf("\nLog (%d entries):\n", len(logs))
		for _, entry := range logs {
			fmt.Printf("  %s [%s] %s\n",
				entry.CreatedAt.Format("15:04:05"), entry.Level, entry.Message)
		}
	}
	return nil
}
