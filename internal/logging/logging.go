package logging

import (
	"log/slog"
	"os"
	"strings"
)

type Logger = slog.Logger

// New builds a JSON slog logger. Log output goes to stderr so that
// command output (summaries, match previews) stays clean on stdout.
func New(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("app", "linkbuilder")
}
