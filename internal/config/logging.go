package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// fanoutLogger builds the dual-output logger: human-readable text on stderr,
// JSON on the log sink for machine parsing. Every record carries the service
// name so shared log files stay attributable.
func fanoutLogger(stderr, sink io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	logger := slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, opts),
		slog.NewJSONHandler(sink, opts),
	))
	return logger.With("service", "postcraft")
}

// SetupLogger opens the log file and returns the dual-output logger plus a
// cleanup function that closes the file. When the file cannot be opened the
// logger degrades to stderr-only.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(handler).With("service", "postcraft"), func() error { return nil }
	}

	return fanoutLogger(os.Stderr, file, level), file.Close
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return fanoutLogger(stderr, file, level)
}
