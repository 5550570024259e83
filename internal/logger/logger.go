// Package logger configures the process-wide structured logger.
// Logs go to stderr because stdout carries exported data.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init installs a JSON slog handler at the given level as the default
// logger. Unknown levels fall back to info.
func Init(level string) {
	InitTo(os.Stderr, level)
}

// InitTo is Init with an explicit output writer.
func InitTo(w io.Writer, level string) {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
