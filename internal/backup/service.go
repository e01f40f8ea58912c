package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ritualhq/ritual/internal/storage"
)

// ErrInvalidBackup marks a snapshot file that failed structural validation.
// A restore that returns it has touched nothing.
var ErrInvalidBackup = errors.New("backup: invalid snapshot file")

const (
	filePrefix = "ritual-backup-"
	fileSuffix = ".json"

	// DefaultRetention bounds how many snapshot files the backup directory
	// keeps, counting invalid files too.
	DefaultRetention = 10

	exportedBy = "ritual"
)

// Info describes one file in the backup directory.
type Info struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	Valid   bool
}

type Service struct {
	store      *storage.Store
	dir        string
	retention  int
	appVersion string
	now        func() time.Time
}

type Option func(*Service)

func WithRetention(n int) Option {
	return func(s *Service) { s.retention = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store *storage.Store, dir, appVersion string, opts ...Option) *Service {
	s := &Service{
		store:      store,
		dir:        dir,
		retention:  DefaultRetention,
		appVersion: appVersion,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export writes a point-in-time snapshot of the whole store to a uniquely
// named file in the backup directory, then prunes the oldest files beyond
// the retention bound.
func (s *Service) Export(ctx context.Context) (string, *Snapshot, error) {
	snapshot, err := s.gather(ctx)
	if err != nil {
		return "", nil, err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("export backup: marshal: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", nil, fmt.Errorf("export backup: create backup dir: %w", err)
	}

	now := s.now().UTC()
	name := fmt.Sprintf("%s%s.%03d%s", filePrefix, now.Format("20060102-150405"), now.UnixMilli()%1000, fileSuffix)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", nil, fmt.Errorf("export backup: write %s: %w", name, err)
	}

	if err := s.prune(); err != nil {
		return "", nil, err
	}
	return path, snapshot, nil
}

// Import restores a snapshot file. Structural validation runs before any
// mutation; on failure the store is untouched and the itemized issues come
// back wrapped in ErrInvalidBackup. On success the wipe and bulk insert
// execute as one transaction.
func (s *Service) Import(ctx context.Context, path string) (*Validation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("import backup: read %s: %w", path, err)
	}

	snapshot, validation := ValidateSnapshot(raw, s.now())
	if !validation.Valid() {
		return validation, fmt.Errorf("%w: %s", ErrInvalidBackup, strings.Join(validation.Issues, "; "))
	}

	err = s.store.ExecuteTransaction(ctx, func(tx *sql.Tx) error {
		return restoreSnapshot(ctx, tx, snapshot)
	})
	if err != nil {
		return validation, fmt.Errorf("import backup: %w", err)
	}
	return validation, nil
}

// List enumerates the backup directory, classifying each snapshot file by
// re-running structural validation against its contents.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	var out []Info
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !isBackupFile(dirEntry.Name()) {
			continue
		}
		fileInfo, err := dirEntry.Info()
		if err != nil {
			return nil, fmt.Errorf("list backups: stat %s: %w", dirEntry.Name(), err)
		}

		info := Info{
			Name:    dirEntry.Name(),
			Path:    filepath.Join(s.dir, dirEntry.Name()),
			Size:    fileInfo.Size(),
			ModTime: fileInfo.ModTime(),
		}
		if raw, err := os.ReadFile(info.Path); err == nil {
			_, validation := ValidateSnapshot(raw, s.now())
			info.Valid = validation.Valid()
		}
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Service) gather(ctx context.Context) (*Snapshot, error) {
	categories, err := s.store.Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export backup: load categories: %w", err)
	}
	tasks, err := s.store.Tasks.List(ctx, storage.TaskFilter{IncludeArchived: true})
	if err != nil {
		return nil, fmt.Errorf("export backup: load tasks: %w", err)
	}
	entries, err := s.store.Entries.ListRange(ctx, "0000-01-01", "9999-12-31")
	if err != nil {
		return nil, fmt.Errorf("export backup: load entries: %w", err)
	}
	completions, err := s.store.Completions.ListRange(ctx, "0000-01-01", "9999-12-31")
	if err != nil {
		return nil, fmt.Errorf("export backup: load completions: %w", err)
	}
	settings, err := s.store.Settings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("export backup: load settings: %w", err)
	}

	snapshot := &Snapshot{
		Version:     FormatVersion,
		Timestamp:   s.now().UnixMilli(),
		Categories:  make([]CategoryRecord, 0, len(categories)),
		Tasks:       make([]TaskRecord, 0, len(tasks)),
		Entries:     make([]EntryRecord, 0, len(entries)),
		Completions: make([]CompletionRecord, 0, len(completions)),
		Settings:    make([]SettingRecord, 0, len(settings)),
	}
	for _, category := range categories {
		snapshot.Categories = append(snapshot.Categories, categoryRecord(category))
	}
	for _, task := range tasks {
		snapshot.Tasks = append(snapshot.Tasks, taskRecord(task))
	}
	for _, entry := range entries {
		snapshot.Entries = append(snapshot.Entries, entryRecord(entry))
	}
	for _, completion := range completions {
		snapshot.Completions = append(snapshot.Completions, completionRecord(completion))
	}
	for _, setting := range settings {
		snapshot.Settings = append(snapshot.Settings, settingRecord(setting))
	}

	snapshot.Metadata = Metadata{
		TotalRecords: len(snapshot.Categories) + len(snapshot.Tasks) + len(snapshot.Entries) +
			len(snapshot.Completions) + len(snapshot.Settings),
		ExportedBy: exportedBy,
		AppVersion: s.appVersion,
	}
	return snapshot, nil
}

// restoreSnapshot wipes current data and bulk-inserts the snapshot inside
// the caller's transaction. Categories seeded as protected defaults are kept
// and re-keyed by name when the snapshot carries them.
func restoreSnapshot(ctx context.Context, tx *sql.Tx, snapshot *Snapshot) error {
	for _, stmt := range []string{
		`DELETE FROM completions`,
		`DELETE FROM entries`,
		`DELETE FROM tasks`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("wipe: %w", err)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(storage.DefaultCategoryNames)), ",")
	args := make([]any, len(storage.DefaultCategoryNames))
	for i, name := range storage.DefaultCategoryNames {
		args[i] = name
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE name NOT IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("wipe categories: %w", err)
	}

	for _, category := range snapshot.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories(id, name) VALUES(?, ?)
			ON CONFLICT(name) DO UPDATE SET id = excluded.id
		`, category.ID, category.Name); err != nil {
			return fmt.Errorf("insert category %s: %w", category.ID, err)
		}
	}
	for _, task := range snapshot.Tasks {
		minutes := sql.NullInt64{}
		if task.DefaultMinutes != nil {
			minutes = sql.NullInt64{Int64: int64(*task.DefaultMinutes), Valid: true}
		}
		archived := 0
		if task.Archived {
			archived = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks(id, title, category_id, default_minutes, archived, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?, ?, ?)
		`, task.ID, task.Title, task.CategoryID, minutes, archived, task.CreatedAt, task.UpdatedAt); err != nil {
			return fmt.Errorf("insert task %s: %w", task.ID, err)
		}
	}
	for _, entry := range snapshot.Entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entries(id, date, note, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?)
		`, entry.ID, entry.Date, entry.Note, entry.CreatedAt, entry.UpdatedAt); err != nil {
			return fmt.Errorf("insert entry %s: %w", entry.ID, err)
		}
	}
	for _, completion := range snapshot.Completions {
		minutes := sql.NullInt64{}
		if completion.Minutes != nil {
			minutes = sql.NullInt64{Int64: int64(*completion.Minutes), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO completions(id, date, task_id, minutes, created_at)
			VALUES(?, ?, ?, ?, ?)
		`, completion.ID, completion.Date, completion.TaskID, minutes, completion.CreatedAt); err != nil {
			return fmt.Errorf("insert completion %s: %w", completion.ID, err)
		}
	}
	for _, setting := range snapshot.Settings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, setting.Key, setting.Value); err != nil {
			return fmt.Errorf("insert setting %s: %w", setting.Key, err)
		}
	}
	return nil
}

func (s *Service) prune() error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("prune backups: %w", err)
	}

	var names []string
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() && isBackupFile(dirEntry.Name()) {
			names = append(names, dirEntry.Name())
		}
	}
	if len(names) <= s.retention {
		return nil
	}

	// Names embed the export timestamp, so lexicographic order is
	// chronological.
	sort.Strings(names)
	for _, name := range names[:len(names)-s.retention] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("prune backups: remove %s: %w", name, err)
		}
	}
	return nil
}

func isBackupFile(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}
