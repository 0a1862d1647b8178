package nanovdb

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with nanovdb-specific context.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithLocation adds a storage location field to the logger.
func (l *Logger) WithLocation(location string) *Logger {
	return &Logger{
		Logger: l.Logger.With("location", location),
	}
}

// WithTenant adds a tenant field to the logger.
func (l *Logger) WithTenant(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("tenant", id),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogUpsert logs an upsert operation.
func (l *Logger) LogUpsert(ctx context.Context, updated, inserted int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upsert failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "upsert completed",
			"updated", updated,
			"inserted", inserted,
		)
	}
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, requested, removed int) {
	l.DebugContext(ctx, "remove completed",
		"requested", requested,
		"removed", removed,
	)
}

// LogSave logs a save operation.
func (l *Logger) LogSave(ctx context.Context, location string, records int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"location", location,
			"error", err,
		)
	} else {
		l.WithCount(records).InfoContext(ctx, "store saved",
			"location", location,
			"duration", duration,
		)
	}
}

// LogLoad logs loading persisted state. found is false when the store
// starts empty.
func (l *Logger) LogLoad(ctx context.Context, location string, records int, found bool, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "load failed",
			"location", location,
			"error", err,
		)
	case !found:
		l.InfoContext(ctx, "no persisted state, starting empty",
			"location", location,
		)
	default:
		l.WithCount(records).InfoContext(ctx, "store loaded",
			"location", location,
		)
	}
}

// LogEviction logs a tenant leaving the cache.
func (l *Logger) LogEviction(ctx context.Context, tenant string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "tenant eviction failed",
			"tenant", tenant,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "tenant evicted",
			"tenant", tenant,
		)
	}
}

// LogTenantCreate logs a tenant creation.
func (l *Logger) LogTenantCreate(ctx context.Context, tenant string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "tenant creation failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "tenant created",
			"tenant", tenant,
		)
	}
}

// LogTenantDelete logs a tenant deletion.
func (l *Logger) LogTenantDelete(ctx context.Context, tenant string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "tenant deletion failed",
			"tenant", tenant,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "tenant deleted",
			"tenant", tenant,
		)
	}
}
