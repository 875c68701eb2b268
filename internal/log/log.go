// Package log builds the application logger: JSON slog output with
// credential redaction and optional file rotation.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level    string
	Rotation *RotationConfig
}

// RotationConfig enables size-based rotation of a log file. Zero values fall
// back to the same defaults the config package documents.
type RotationConfig struct {
	File      string
	MaxSizeMB int
	MaxFiles  int
}

// New returns the configured logger and a closer for the rotation writer
// (a no-op closer when logging to stderr).
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		writer io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.Rotation != nil && opts.Rotation.File != "" {
		rotating, err := openRotatingFile(*opts.Rotation)
		if err != nil {
			return nil, nil, err
		}
		writer = rotating
		closer = rotating
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactingHandler(handler)), closer, nil
}

// openRotatingFile builds the lumberjack writer behind the file option.
// Rotated files are compressed; a long-lived local database companion accretes
// logs for months and nobody prunes them by hand.
func openRotatingFile(cfg RotationConfig) (*lumberjack.Logger, error) {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 5
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		Compress:   true,
	}, nil
}

func parseLevel(raw string) (slog.Level, error) {
	switch raw {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", raw)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
