// Package config loads the TOML configuration file, layering file values
// over built-in defaults and validating the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultLogLevel        = "info"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxFiles     = 5
	defaultBackupRetention = 10

	appDirName     = "ritual"
	configFileName = "config.toml"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Backup   BackupConfig   `toml:"backup"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type BackupConfig struct {
	Dir       string `toml:"dir"`
	Retention int    `toml:"retention"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// DefaultConfigPath is <user config dir>/ritual/config.toml.
func DefaultConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName, configFileName), nil
}

func DefaultConfig() (Config, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve user config dir: %w", err)
	}
	appDir := filepath.Join(base, appDirName)
	return Config{
		Database: DatabaseConfig{
			Path: filepath.Join(appDir, "ritual.db"),
		},
		Backup: BackupConfig{
			Dir:       filepath.Join(appDir, "backups"),
			Retention: defaultBackupRetention,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			File:      "",
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}, nil
}

// rawConfig distinguishes absent keys from zero values so a partial file
// only overrides what it names.
type rawConfig struct {
	Database *rawDatabase `toml:"database"`
	Backup   *rawBackup   `toml:"backup"`
	Logging  *rawLogging  `toml:"logging"`
}

type rawDatabase struct {
	Path *string `toml:"path"`
}

type rawBackup struct {
	Dir       *string `toml:"dir"`
	Retention *int    `toml:"retention"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

// Load reads the TOML file at path over the defaults. A missing file is
// not an error; a malformed or invalid one is.
func Load(path string) (Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err == nil {
			var raw rawConfig
			if err := toml.Unmarshal(data, &raw); err != nil {
				return Config{}, fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
			}
			applyRaw(&cfg, raw)
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyRaw(cfg *Config, raw rawConfig) {
	if raw.Database != nil {
		setString(raw.Database.Path, &cfg.Database.Path)
	}
	if raw.Backup != nil {
		setString(raw.Backup.Dir, &cfg.Backup.Dir)
		setInt(raw.Backup.Retention, &cfg.Backup.Retention)
	}
	if raw.Logging != nil {
		setString(raw.Logging.Level, &cfg.Logging.Level)
		setString(raw.Logging.File, &cfg.Logging.File)
		setInt(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setInt(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}
}

func setString(src *string, dst *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(src *int, dst *int) {
	if src != nil {
		*dst = *src
	}
}

func validate(cfg Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("%w: database.path must not be empty", ErrInvalidConfig)
	}
	if cfg.Backup.Dir == "" {
		return fmt.Errorf("%w: backup.dir must not be empty", ErrInvalidConfig)
	}
	if cfg.Backup.Retention < 1 {
		return fmt.Errorf("%w: backup.retention must be at least 1, got %d", ErrInvalidConfig, cfg.Backup.Retention)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error; got %q", ErrInvalidConfig, cfg.Logging.Level)
	}
	if cfg.Logging.MaxSizeMB < 1 {
		return fmt.Errorf("%w: logging.max_size_mb must be at least 1, got %d", ErrInvalidConfig, cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxFiles < 1 {
		return fmt.Errorf("%w: logging.max_files must be at least 1, got %d", ErrInvalidConfig, cfg.Logging.MaxFiles)
	}
	return nil
}
