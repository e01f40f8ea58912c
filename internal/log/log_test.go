package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToFile(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "ritual.log")
	logger, closer, err := New(Config{Level: "info", File: logPath, MaxSizeMB: 1, MaxFiles: 1})
	require.NoError(t, err)

	logger.Info("store opened", "path", "/tmp/ritual.db")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	line := bytes.TrimSpace(data)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(line, &out))
	require.Equal(t, "store opened", out["msg"])
	require.Equal(t, "/tmp/ritual.db", out["path"])
}

func TestNewHonorsLevel(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "ritual.log")
	logger, closer, err := New(Config{Level: "warn", File: logPath})
	require.NoError(t, err)

	logger.Info("suppressed")
	logger.Warn("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.NotContains(t, string(data), "suppressed")
	require.Contains(t, string(data), "kept")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, _, err := New(Config{Level: "verbose"})
	require.Error(t, err)
}

func TestLogRotationCreatesNewFileAfterLimit(t *testing.T) {
	logDir := t.TempDir()
	logPath := filepath.Join(logDir, "ritual.log")

	logger, closer, err := New(Config{Level: "info", File: logPath, MaxSizeMB: 1, MaxFiles: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	payload := string(bytes.Repeat([]byte("a"), 256*1024))
	for i := 0; i < 8; i++ {
		logger.Info("fill", "payload", payload)
	}

	files, err := filepath.Glob(filepath.Join(logDir, "ritual*"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(files), 2)
}

func TestRotatingWriterAppliesFallbackLimits(t *testing.T) {
	t.Parallel()

	writer, err := newRotatingWriter(Config{File: filepath.Join(t.TempDir(), "ritual.log")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })

	require.Equal(t, defaultMaxSizeMB, writer.MaxSize)
	require.Equal(t, defaultMaxFiles, writer.MaxBackups)
}
