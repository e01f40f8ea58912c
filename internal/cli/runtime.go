package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ritualhq/ritual/internal/backup"
	"github.com/ritualhq/ritual/internal/config"
	"github.com/ritualhq/ritual/internal/connectivity"
	"github.com/ritualhq/ritual/internal/log"
	"github.com/ritualhq/ritual/internal/storage"
)

const (
	readRetryAttempts = 3
	readRetryDelay    = 50 * time.Millisecond
)

// loadConfigFn is swapped in tests.
var loadConfigFn = config.Load

type globalOptions struct {
	ConfigPath string
}

// runtime bundles everything an opened command needs.
type runtime struct {
	cfg     config.Config
	store   *storage.Store
	backups *backup.Service
	logger  *slog.Logger
	online  connectivity.Provider
}

// retryRead runs an idempotent read through the connectivity-gated retry
// wrapper. The store is local, so the provider is pinned online and the
// retries only smooth over transient busy errors.
func (rt *runtime) retryRead(ctx context.Context, fn func(ctx context.Context) error) error {
	return connectivity.RetryReads(ctx, rt.online, readRetryAttempts, readRetryDelay, fn)
}

// withStore loads config, opens the store (running migrations) and hands a
// runtime to fn. The store and log writer are closed when fn returns.
func withStore(ctx context.Context, globals *globalOptions, appVersion string, fn func(context.Context, *runtime) error) error {
	configPath := ""
	if globals != nil {
		configPath = strings.TrimSpace(globals.ConfigPath)
	}
	if configPath == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return mapCommandError(fmt.Errorf("load config: %w", err))
		}
		configPath = defaultPath
	}

	cfg, err := loadConfigFn(configPath)
	if err != nil {
		return mapCommandError(fmt.Errorf("load config: %w", err))
	}

	logger, logCloser, err := log.New(log.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return mapCommandError(fmt.Errorf("init logging: %w", err))
	}
	defer logCloser.Close()

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("open store failed", "path", cfg.Database.Path, "error", err)
		return mapCommandError(fmt.Errorf("open store: %w", err))
	}
	defer store.Close()
	logger.Debug("store opened", "path", cfg.Database.Path)

	rt := &runtime{
		cfg:     cfg,
		store:   store,
		backups: backup.NewService(store, cfg.Backup.Dir, appVersion, backup.WithRetention(cfg.Backup.Retention)),
		logger:  logger,
		online:  connectivity.NewStaticProvider(true),
	}
	return mapCommandError(fn(ctx, rt))
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
