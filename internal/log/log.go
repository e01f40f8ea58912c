// Package log builds the process logger: structured JSON via slog, with
// optional size-based file rotation.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Fallbacks when the config carries zero values; they mirror the defaults
// written by `ritual init`.
const (
	defaultMaxSizeMB = 10
	defaultMaxFiles  = 5
)

// Config mirrors the logging section of the configuration file.
type Config struct {
	Level     string
	File      string
	MaxSizeMB int
	MaxFiles  int
}

// New returns a JSON slog.Logger. With Config.File set, records go to a
// size-rotated file and the returned closer owns it; otherwise records go
// to stderr and the closer is a no-op.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var writer io.Writer = os.Stderr
	closer := io.Closer(nopCloser{})
	if cfg.File != "" {
		rotating, err := newRotatingWriter(cfg)
		if err != nil {
			return nil, nil, err
		}
		writer = rotating
		closer = rotating
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	return slog.New(handler), closer, nil
}

// newRotatingWriter opens cfg.File for appending, rolling to a new file
// once MaxSizeMB is reached and keeping at most MaxFiles rolled files.
func newRotatingWriter(cfg Config) (*lumberjack.Logger, error) {
	maxSizeMB := cfg.MaxSizeMB
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	maxFiles := cfg.MaxFiles
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSizeMB,
		MaxBackups: maxFiles,
		Compress:   false,
	}, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
