// Package logger builds the process-wide slog.Logger. The console handler
// is meant for development terminals; production deployments should run
// with the json format.
package logger

import (
	"io"
	"log/slog"
)

// New returns a logger writing to w in the given format ("console" or
// "json").
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewConsoleHandler(w, opts))
}
