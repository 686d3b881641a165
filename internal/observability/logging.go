package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds a slog text logger at the configured verbosity.
// The CRITICAL level of the legacy configuration schema has no slog
// equivalent and maps onto ERROR.
func NewLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "DEBUG":
		l = slog.LevelDebug
	case "INFO":
		l = slog.LevelInfo
	case "WARNING":
		l = slog.LevelWarn
	case "ERROR", "CRITICAL":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
