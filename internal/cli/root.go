// Package cli provides the command-line interface for postcraft.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbraendle/postcraft/internal/client"
	"github.com/dbraendle/postcraft/internal/config"
	"github.com/dbraendle/postcraft/internal/db"
	"github.com/dbraendle/postcraft/internal/extract"
	"github.com/dbraendle/postcraft/internal/llm"
	"github.com/dbraendle/postcraft/internal/metrics"
	"github.com/dbraendle/postcraft/internal/service"
	"github.com/dbraendle/postcraft/internal/worker"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client

	// Lazy-initialized LLM model, only built for commands that need it.
	model *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "postcraft",
	Short: "Source-grounded social content pipeline",
	Long: `Postcraft turns uploaded documents, URLs and transcripts into a batch of
platform-ready social posts with verbatim citations back to the source
material.

Sources move through a durable job queue (extract, chunk, profile,
generate); every generated claim cites the chunk it came from.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// getService returns the pipeline service. Commands enqueue work through it;
// processing happens via the server's sweep loop or the sweep command. With a
// worker secret configured, every enqueue also nudges the running server for
// an immediate background sweep.
func getService() *service.Service {
	var kicker service.Kicker
	if cfg.WorkerSecret != "" {
		kicker = client.New(cfg.ServerURL, cfg.WorkerSecret, cliLogger())
	}
	return service.New(dbClient, kicker, cliLogger())
}

// getWorker builds a one-shot worker for local sweeps. It needs the LLM
// model, which is initialized lazily here.
func getWorker() (*worker.Worker, error) {
	if model == nil {
		var err error
		model, err = llm.NewModel(cfg)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}

	collector := metrics.NewCollector()
	generator := llm.NewGenerator(model, collector)
	return worker.New(dbClient, extract.NewService(), generator, collector, cliLogger()), nil
}

// cliLogger logs to stderr when --verbose is set, otherwise discards.
func cliLogger() *slog.Logger {
	if verbose {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(sweepCmd)
}
