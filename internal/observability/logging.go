// Package observability provides structured logging and Prometheus metrics
// for the agent service.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Defaults to "info".
	Level string

	// Format selects the handler: "json" (default) or "text".
	Format string

	// Output is where logs are written. Defaults to os.Stdout.
	Output io.Writer

	// AddSource includes the source file and line in records.
	AddSource bool
}

// NewLogger creates a structured slog logger with the given configuration.
func NewLogger(config LogConfig) *slog.Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	var level slog.Level
	switch strings.ToLower(config.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "text" {
		handler = slog.NewTextHandler(config.Output, opts)
	} else {
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	return slog.New(handler)
}
