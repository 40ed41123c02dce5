package imgsim

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with imgsim-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogAddImage logs a single ingestion step. Recoverable skips (missing file,
// encode failure) are warnings; store failures are errors.
func (l *Logger) LogAddImage(ctx context.Context, id string, status AddStatus, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "add image failed",
			"id", id,
			"error", err,
		)
	case status == AddStatusMissing:
		l.WarnContext(ctx, "image missing, skipped",
			"id", id,
		)
	case status == AddStatusEncodeFailed:
		l.WarnContext(ctx, "image could not be embedded, skipped",
			"id", id,
		)
	default:
		l.DebugContext(ctx, "add image completed",
			"id", id,
			"status", status.String(),
		)
	}
}

// LogBuild logs a completed BuildDatabase run.
func (l *Logger) LogBuild(ctx context.Context, root string, report BuildReport, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build database failed",
			"root", root,
			"processed", report.Added+report.Updated+report.Fresh+report.Missing+report.Failed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build database completed",
			"root", root,
			"total", report.Total,
			"added", report.Added,
			"updated", report.Updated,
			"fresh", report.Fresh,
			"missing", report.Missing,
			"failed", report.Failed,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, kind string, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"kind", kind,
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"kind", kind,
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogClear logs a clear operation.
func (l *Logger) LogClear(ctx context.Context, err error) {
	if err != nil {
		l.ErrorContext(ctx, "clear failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "collection cleared")
	}
}

// LogSnapshot logs a backup or restore operation.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot completed",
			"op", op,
			"name", name,
		)
	}
}
