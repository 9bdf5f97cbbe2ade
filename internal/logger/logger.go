// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

// Configure installs a TextHandler on stderr as the default logger and returns it.
// Stdout stays free for the MCP stdio transport and CLI output.
func Configure(lvl string) *slog.Logger {
	return ConfigureTo(os.Stderr, lvl)
}

// ConfigureTo is Configure with an explicit destination.
func ConfigureTo(w io.Writer, lvl string) *slog.Logger {
	SetLevel(lvl)

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// SetLevel changes the level of the configured logger. Unknown names mean INFO.
func SetLevel(lvl string) {
	level.Set(ParseLevel(lvl))
}

// ParseLevel maps DEBUG, INFO, WARN and ERROR (any case) to slog levels.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(lvl)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
