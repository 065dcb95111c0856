package cli

import (
	"io"
	"log/slog"

	"github.com/vmsite/collector/internal/config"
)

// newLogger builds the process logger from the log section. Output goes
// to w, normally stderr, so command output on stdout stays clean.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h)
}
