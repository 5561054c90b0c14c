package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// InitLogger installs a JSON slog handler on stderr as the default logger.
// LOG_LEVEL selects debug, info (default), warn or error.
func InitLogger() {
	slog.SetDefault(New(os.Stderr, os.Getenv("LOG_LEVEL")))
}

// New builds a JSON logger writing to w at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
