// Command postcraft-server runs the pipeline worker as a long-lived process:
// a periodic sweep loop over the job queue plus an HTTP surface for manual
// sweep triggers, health checks and runtime statistics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dbraendle/postcraft/internal/config"
	"github.com/dbraendle/postcraft/internal/db"
	"github.com/dbraendle/postcraft/internal/extract"
	"github.com/dbraendle/postcraft/internal/llm"
	"github.com/dbraendle/postcraft/internal/metrics"
	"github.com/dbraendle/postcraft/internal/server"
	"github.com/dbraendle/postcraft/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "postcraft-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer client.Close(context.Background())

	if err := client.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	model, err := llm.NewModel(cfg)
	if err != nil {
		return fmt.Errorf("init llm: %w", err)
	}

	collector := metrics.NewCollector()
	generator := llm.NewGenerator(model, collector)
	extractor := extract.NewService()

	w := worker.New(client, extractor, generator, collector, logger)
	logger.Info("worker ready", "identity", w.ID(), "sweep_interval", cfg.SweepInterval)

	kicker := worker.NewKicker(w, logger)
	kicker.Start(ctx)
	defer kicker.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      server.New(w, kicker, collector, client, cfg.WorkerSecret, logger).Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second, // sweeps can run LLM calls
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go sweepLoop(ctx, kicker, cfg.SweepInterval)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// sweepLoop kicks the worker once at startup and then once per interval until
// the context is cancelled. Kicks coalesce inside the kicker, so an interval
// tick during a long sweep does not pile up work.
func sweepLoop(ctx context.Context, kicker *worker.Kicker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		kicker.Kick()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
