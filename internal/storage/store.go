package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode=WAL`
	pragmaForeignKeysOn  = `PRAGMA foreign_keys=ON`
	pragmaBusyTimeout    = `PRAGMA busy_timeout=5000`
)

// Store owns the single writer handle to the embedded database. It is
// constructed once at startup and injected into every component; there is
// no global instance.
type Store struct {
	db   *sql.DB
	path string

	Categories  CategoryRepository
	Tasks       TaskRepository
	Entries     EntryRepository
	Completions CompletionRepository
	Settings    SettingRepository
}

// Open creates or opens the SQLite database at path and brings it to the
// latest schema version. A migration failure is fatal: no Store is returned
// and the caller must not proceed.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("open storage: empty path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open storage: create parent dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	// A single connection serializes every logical call against the store;
	// overlapping mutations queue on the pool rather than contend.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := configureSQLite(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := RunMigrations(db, DefaultMigrations()); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db, path: path}
	store.Categories = &categoryRepository{db: db}
	store.Tasks = &taskRepository{db: db}
	store.Entries = &entryRepository{db: db}
	store.Completions = &completionRepository{db: db}
	store.Settings = &settingRepository{db: db}

	return store, nil
}

// OpenMemory opens an in-memory store for tests.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// ExecuteQuery runs a read against the store. Callers own the returned rows.
func (s *Store) ExecuteQuery(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// ExecuteUpdate runs a single mutation outside any explicit transaction.
func (s *Store) ExecuteUpdate(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{pragmaJournalModeWAL, pragmaForeignKeysOn, pragmaBusyTimeout}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("configure sqlite %q: %w", stmt, err)
		}
	}
	return nil
}

// DefaultPath returns the database location under the user config dir.
func DefaultPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(cfg, "ritual", "ritual.db"), nil
}
