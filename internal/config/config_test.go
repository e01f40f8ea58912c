package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)

	require.NotEmpty(t, cfg.Database.Path)
	require.NotEmpty(t, cfg.Backup.Dir)
	require.Equal(t, defaultBackupRetention, cfg.Backup.Retention)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadPartialFileOverridesOnlyNamedKeys(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `
[database]
path = "/tmp/custom.db"

[logging]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.db", cfg.Database.Path)
	require.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	require.Equal(t, defaultBackupRetention, cfg.Backup.Retention)
	require.Equal(t, defaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, `[database
path =`)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadValidates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
	}{
		{"empty database path", "[database]\npath = \"\"\n"},
		{"zero retention", "[backup]\nretention = 0\n"},
		{"unknown log level", "[logging]\nlevel = \"verbose\"\n"},
		{"zero log size", "[logging]\nmax_size_mb = 0\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfigFile(t, tt.contents))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
