package config

import (
	"io"
	"log/slog"
)

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// NewLogger writes JSON records in production and text elsewhere. Debug
// records are only kept outside production.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
