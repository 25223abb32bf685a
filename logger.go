package replaytables

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with replay-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithTable adds a table name field to the logger.
func (l *Logger) WithTable(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", name),
	}
}

// WithID adds an item ID field to the logger.
func (l *Logger) WithID(id ID) *Logger {
	return &Logger{
		Logger: l.Logger.With("id", id),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, id ID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"id", id,
		)
	}
}

// LogRemove logs the removal of an item record.
func (l *Logger) LogRemove(ctx context.Context, id ID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"id", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed",
			"id", id,
		)
	}
}

// LogTable logs a table registry change.
func (l *Logger) LogTable(ctx context.Context, action, name string, capacity int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "table "+action+" failed",
			"table", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "table "+action,
			"table", name,
			"capacity", capacity,
		)
	}
}

// LogEviction logs a FIFO eviction.
func (l *Logger) LogEviction(ctx context.Context, slot int, id ID) {
	l.DebugContext(ctx, "evicted oldest item",
		"slot", slot,
		"id", id,
	)
}

// LogResolveRace logs a sampled slot whose item vanished before it could be
// pinned.
func (l *Logger) LogResolveRace(ctx context.Context, slot int, id ID) {
	l.DebugContext(ctx, "sampled item removed before resolve",
		"slot", slot,
		"id", id,
	)
}
