// Package logging builds the slog loggers used across extractsuper.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// DefaultLevel applies when no level is configured.
const DefaultLevel = slog.LevelWarn

// New returns a text logger writing to w at level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LevelFromString converts debug, info, warn (or warning) and error,
// case-insensitively. Anything else yields DefaultLevel and ok=false.
func LevelFromString(s string) (level slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return DefaultLevel, false
	}
}

// Level picks the effective level: debug when verbose, else the configured one.
func Level(configured string, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	level, _ := LevelFromString(configured)
	return level
}
