package engine

import (
	"log/slog"
	"os"
)

// Logger is the process-wide structured logger.
var Logger *slog.Logger = slog.Default()

// InitLogger configures the structured logger. Format "text" is for
// interactive runs, anything else produces JSON for log collectors.
func InitLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "text" {
		Logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
	} else {
		Logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	slog.SetDefault(Logger)
}
