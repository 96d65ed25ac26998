// Package log configures structured logging for the engine and its commands.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default slog handler at the requested level. Format is
// "text" or "json"; anything else falls back to text.
func Setup(logLevel, format string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithModule returns a logger scoped to an engine module.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

// WithRun returns a logger carrying workflow and execution identifiers, the
// keys every engine log line is expected to have.
func WithRun(logger *slog.Logger, workflowID, runID string) *slog.Logger {
	return logger.With("workflow_id", workflowID, "execution_id", runID)
}
