package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/platform/correlation"
	"github.com/lmittmann/tint"
)

// Logger is the application-wide structured logger instance.
var Logger *slog.Logger

// InitLogger initializes the global logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json", "pretty" or "text" (defaults to "text")
func InitLogger(level, format string) {
	Logger = slog.New(NewHandler(os.Stdout, level, format))
	slog.SetDefault(Logger)
}

// NewHandler builds the correlation-aware handler used by InitLogger.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	logLevel := ParseLevel(level)

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	case "pretty":
		handler = tint.NewHandler(w, &tint.Options{Level: logLevel, TimeFormat: time.Kitchen})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})
	}

	return correlation.NewHandler(handler)
}

func ParseLevel(level string) slog.Level {
	switch level {
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
