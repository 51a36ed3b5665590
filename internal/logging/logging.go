// Package logging builds the structured slog logger used by SDK tooling.
// The runtime itself never installs a global logger; callers pass one in and
// library code defaults to slog.Default.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a logger writing to w with the given level and format.
// Supported levels: "debug", "info", "warn", "error" (default: "info").
// Supported formats: "text", "json" (default: "text").
func New(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Setup installs a logger built by New as the process default. Tooling
// entrypoints call this once at startup.
func Setup(level, format string, w io.Writer) {
	slog.SetDefault(New(level, format, w))
}
