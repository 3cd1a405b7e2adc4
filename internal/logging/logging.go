// Package logging provides structured logging for the quantile tools.
//
// It wraps log/slog so every component logs the same way. Logs go to
// stderr; stdout is reserved for results.
//
// Usage:
//
//	logging.Init(slog.LevelInfo, false)
//
//	log := logging.Component(logging.ComponentCompute)
//	log.Debug("partition consumed", "partition", i, "count", n)
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Component names used across the repository.
const (
	ComponentCompute = "compute"
	ComponentParquet = "source.parquet"
	ComponentDuckDB  = "source.duckdb"
	ComponentCLI     = "cli"
)

// Logger is the global logger instance.
var Logger *slog.Logger

// Init initializes the global logger writing to stderr.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stderr, level, jsonFormat)
}

// InitWriter initializes the global logger writing to w.
func InitWriter(w io.Writer, level slog.Level, jsonFormat bool) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	InitWithHandler(handler)
}

// InitWithHandler initializes the global logger with a custom handler.
func InitWithHandler(handler slog.Handler) {
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel converts debug, info, warn or error into a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func ensure() *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger
}

// With returns a new logger with additional attributes.
func With(args ...any) *slog.Logger {
	return ensure().With(args...)
}

// Component returns a logger tagged with the component name.
func Component(name string) *slog.Logger {
	return ensure().With("component", name)
}

// WithContext returns a logger carrying the job and partition stored in ctx.
func WithContext(ctx context.Context) *slog.Logger {
	logger := ensure()

	if job, ok := ctx.Value(contextKeyJob).(string); ok {
		logger = logger.With("job", job)
	}
	if partition, ok := ctx.Value(contextKeyPartition).(int); ok {
		logger = logger.With("partition", partition)
	}
	return logger
}

type contextKey int

const (
	contextKeyJob contextKey = iota
	contextKeyPartition
)

// ContextWithJob adds a job name to the context for logging.
func ContextWithJob(ctx context.Context, job string) context.Context {
	return context.WithValue(ctx, contextKeyJob, job)
}

// ContextWithPartition adds a partition index to the context for logging.
func ContextWithPartition(ctx context.Context, partition int) context.Context {
	return context.WithValue(ctx, contextKeyPartition, partition)
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) { ensure().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { ensure().Info(msg, args...) }

// Warn logs at warning level.
func Warn(msg string, args ...any) { ensure().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { ensure().Error(msg, args...) }
