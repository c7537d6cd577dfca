package slogutil

import (
	"io"
	"log/slog"

	"apiguard/internal/config"
)

// FromConfig builds the CLI logger: console records go to w at consoleLevel in the configured
// format, and when logging.file is set every record at logging.level is also appended to a
// size-rotated file under repoRoot. The returned closer is never nil.
func FromConfig(w io.Writer, consoleLevel slog.Level, cfg config.LoggingConfig, repoRoot string) (*slog.Logger, io.Closer, error) {
	console := newFormatHandler(w, consoleLevel, cfg.Format, false)
	if cfg.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	limit, err := ParseSize(cfg.MaxSize)
	if err != nil {
		return nil, nil, err
	}
	rw, err := OpenRotatingWriter(config.Resolve(repoRoot, cfg.File), limit, cfg.MaxBackups)
	if err != nil {
		return nil, nil, err
	}

	file := newFormatHandler(rw, LevelFromString(cfg.Level), cfg.Format, true)
	return slog.New(fanout{console, file}), rw, nil
}

func newFormatHandler(w io.Writer, level slog.Level, format string, timestamps bool) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return NewHandler(w, HandlerOptions{Level: level, Timestamps: timestamps})
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
