// Package ctxlog provides a context key for safely passing a slog.Logger
// instance through context.Context, plus the structured attribute used for
// shell command records.
package ctxlog

import (
	"context"
	"log/slog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

// loggerKey is the key for the slog.Logger in a context.Context.
var loggerKey = key{}

// ShellKey names the attribute group carrying a shell command record.
const ShellKey = "shell"

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. If no logger is
// found, it returns the default global logger.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// Shell builds the attribute describing an external command: its argument
// vector and, when set, the directory it runs in.
func Shell(argv []string, dir string) slog.Attr {
	attrs := []any{slog.Any("argv", argv)}
	if dir != "" {
		attrs = append(attrs, slog.String("dir", dir))
	}
	return slog.Group(ShellKey, attrs...)
}
