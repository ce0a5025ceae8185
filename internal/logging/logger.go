// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aevon-lab/project-dimsync/internal/core/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup installs the default slog logger for cfg and returns a closer for the
// file sink. Level values: debug, info, warn, error (default info). Format
// values: text, json (default text). With File set, output goes to stdout
// and to a size-rotated file.
func Setup(cfg config.LoggingConfig) io.Closer {
	out, closer := writer(cfg, os.Stdout)
	slog.SetDefault(slog.New(newHandler(out, cfg)))
	return closer
}

func newHandler(w io.Writer, cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func writer(cfg config.LoggingConfig, stdout io.Writer) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return stdout, nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(stdout, file), file
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
