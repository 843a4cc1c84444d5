package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Process queued jobs once",
	Long: `Claim and execute due jobs until the queue is drained or the batch
limit is reached. Useful without a running postcraft-server, or to push
queued work through immediately.

Requires LLM credentials when profile or generation jobs are queued.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, args []string) error {
	w, err := getWorker()
	if err != nil {
		return err
	}

	result, err := w.RunSweep(context.Background())
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	if result.Processed == 0 && result.Errored == 0 {
		fmt.Println("No due jobs")
		return nil
	}
	fmt.Printf("Processed %d job(s), %d errored\n", result.Processed, result.Errored)
	return nil
}
