package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the structured logger shared by the binaries. All output is
// JSON on stdout so log shippers can ingest it without extra parsing.
type Logger struct {
	*slog.Logger
}

// New builds a logger at the named level. Unrecognized names fall back
// to info rather than failing startup.
func New(level string) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return &Logger{Logger: slog.New(handler)}
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns an info-level logger.
func Default() *Logger {
	return New("info")
}
