package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fairyhunter13/ai-interview-assistant/internal/config"
)

// SetupLogger returns the process logger writing JSON to stdout.
func SetupLogger(cfg config.Config) *slog.Logger {
	return NewLogger(os.Stdout, cfg)
}

// NewLogger builds a JSON logger tagged with service and env. Dev logs at
// debug, everything else at info, unless LOG_LEVEL names another level.
func NewLogger(w io.Writer, cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	if lv := strings.TrimSpace(cfg.LogLevel); lv != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(lv)); err == nil {
			level = parsed
		}
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: cfg.IsDev()})
	return slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
}
