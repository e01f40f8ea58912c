package backup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ritualhq/ritual/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "ritual.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestService(t *testing.T, store *storage.Store, opts ...Option) *Service {
	t.Helper()
	return NewService(store, filepath.Join(t.TempDir(), "backups"), "test", opts...)
}

func seedStore(t *testing.T, store *storage.Store) (*storage.Category, *storage.Task) {
	t.Helper()
	ctx := context.Background()

	category := &storage.Category{Name: "health"}
	require.NoError(t, store.Categories.Create(ctx, category))

	minutes := 20
	task := &storage.Task{Title: "stretch", CategoryID: category.ID, DefaultMinutes: &minutes}
	require.NoError(t, store.Tasks.Create(ctx, task))

	_, err := store.Completions.Toggle(ctx, "2025-01-15", task.ID, &minutes)
	require.NoError(t, err)
	_, err = store.Entries.UpsertByDate(ctx, "2025-01-15", "felt good")
	require.NoError(t, err)

	return category, task
}

func storeContents(t *testing.T, store *storage.Store) ([]storage.Category, []storage.Task, []storage.Entry, []storage.Completion) {
	t.Helper()
	ctx := context.Background()

	categories, err := store.Categories.List(ctx)
	require.NoError(t, err)
	tasks, err := store.Tasks.List(ctx, storage.TaskFilter{IncludeArchived: true})
	require.NoError(t, err)
	entries, err := store.Entries.ListRange(ctx, "0000-01-01", "9999-12-31")
	require.NoError(t, err)
	completions, err := store.Completions.ListRange(ctx, "0000-01-01", "9999-12-31")
	require.NoError(t, err)
	return categories, tasks, entries, completions
}

func TestExportWritesSnapshotFile(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedStore(t, store)
	service := newTestService(t, store)

	path, snapshot, err := service.Export(context.Background())
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, FormatVersion, snapshot.Version)

	// Default categories plus the seeded one.
	require.Len(t, snapshot.Categories, 3)
	require.Len(t, snapshot.Tasks, 1)
	require.Len(t, snapshot.Entries, 1)
	require.Len(t, snapshot.Completions, 1)
	require.NotEmpty(t, snapshot.Settings)
	require.Equal(t, "ritual", snapshot.Metadata.ExportedBy)

	wantTotal := len(snapshot.Categories) + len(snapshot.Tasks) + len(snapshot.Entries) +
		len(snapshot.Completions) + len(snapshot.Settings)
	require.Equal(t, wantTotal, snapshot.Metadata.TotalRecords)

	// The file parses and validates.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	parsed, validation := ValidateSnapshot(raw, time.Now())
	require.True(t, validation.Valid())
	require.Equal(t, snapshot.Metadata, parsed.Metadata)
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedStore(t, store)
	service := newTestService(t, store)
	ctx := context.Background()

	path, _, err := service.Export(ctx)
	require.NoError(t, err)

	wantCategories, wantTasks, wantEntries, wantCompletions := storeContents(t, store)

	validation, err := service.Import(ctx, path)
	require.NoError(t, err)
	require.True(t, validation.Valid())

	gotCategories, gotTasks, gotEntries, gotCompletions := storeContents(t, store)
	require.ElementsMatch(t, wantCategories, gotCategories)
	require.ElementsMatch(t, wantTasks, gotTasks)
	require.ElementsMatch(t, wantEntries, gotEntries)
	require.ElementsMatch(t, wantCompletions, gotCompletions)
}

func TestImportReplacesExistingData(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	_, task := seedStore(t, store)
	service := newTestService(t, store)
	ctx := context.Background()

	path, _, err := service.Export(ctx)
	require.NoError(t, err)

	// Mutate after the export: toggle off the completion, add a task.
	_, err = store.Completions.Toggle(ctx, "2025-01-15", task.ID, nil)
	require.NoError(t, err)
	extraCategory, err := store.Categories.GetByName(ctx, "life")
	require.NoError(t, err)
	require.NoError(t, store.Tasks.Create(ctx, &storage.Task{Title: "extra", CategoryID: extraCategory.ID}))

	validation, err := service.Import(ctx, path)
	require.NoError(t, err)
	require.True(t, validation.Valid())

	_, tasks, _, completions := storeContents(t, store)
	require.Len(t, tasks, 1)
	require.Equal(t, task.ID, tasks[0].ID)
	require.Len(t, completions, 1)
}

func TestImportRejectsMalformedSnapshotWithZeroSideEffects(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedStore(t, store)
	service := newTestService(t, store)
	ctx := context.Background()

	// A structurally broken snapshot: no tasks array.
	broken := map[string]any{
		"version":     FormatVersion,
		"timestamp":   time.Now().UnixMilli(),
		"categories":  []any{},
		"entries":     []any{},
		"completions": []any{},
		"settings":    []any{},
		"metadata":    map[string]any{"totalRecords": 0, "exportedBy": "x", "appVersion": "x"},
	}
	raw, err := json.Marshal(broken)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	wantCategories, wantTasks, wantEntries, wantCompletions := storeContents(t, store)

	validation, err := service.Import(ctx, path)
	require.ErrorIs(t, err, ErrInvalidBackup)
	require.False(t, validation.Valid())

	gotCategories, gotTasks, gotEntries, gotCompletions := storeContents(t, store)
	require.Equal(t, wantCategories, gotCategories)
	require.Equal(t, wantTasks, gotTasks)
	require.Equal(t, wantEntries, gotEntries)
	require.Equal(t, wantCompletions, gotCompletions)
}

func TestImportRollsBackOnPartialFailure(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	seedStore(t, store)
	service := newTestService(t, store)
	ctx := context.Background()

	path, _, err := service.Export(ctx)
	require.NoError(t, err)

	// Structurally valid, but a completion references a task that is not in
	// the snapshot; the foreign key fails mid-import.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	snapshot.Completions = append(snapshot.Completions, CompletionRecord{
		ID: "bad", Date: "2025-01-16", TaskID: "ghost", CreatedAt: "2025-01-16T08:00:00Z",
	})
	broken, err := json.Marshal(snapshot)
	require.NoError(t, err)
	brokenPath := filepath.Join(t.TempDir(), "partial.json")
	require.NoError(t, os.WriteFile(brokenPath, broken, 0o600))

	wantCategories, wantTasks, wantEntries, wantCompletions := storeContents(t, store)

	_, err = service.Import(ctx, brokenPath)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidBackup)

	gotCategories, gotTasks, gotEntries, gotCompletions := storeContents(t, store)
	require.Equal(t, wantCategories, gotCategories)
	require.Equal(t, wantTasks, gotTasks)
	require.Equal(t, wantEntries, gotEntries)
	require.Equal(t, wantCompletions, gotCompletions)
}

func TestRetentionPrunesOldestFiles(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	clock := time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)
	service := newTestService(t, store, WithRetention(3), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))

	var paths []string
	for i := 0; i < 5; i++ {
		path, _, err := service.Export(ctx)
		require.NoError(t, err)
		paths = append(paths, path)
	}

	infos, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 3)

	// Oldest two are gone.
	require.NoFileExists(t, paths[0])
	require.NoFileExists(t, paths[1])
	require.FileExists(t, paths[4])
}

func TestListClassifiesInvalidFiles(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	service := newTestService(t, store)
	ctx := context.Background()

	_, _, err := service.Export(ctx)
	require.NoError(t, err)

	// Drop a garbage file with a backup name into the directory.
	bogus := filepath.Join(service.dir, filePrefix+"20200101-000000.000"+fileSuffix)
	require.NoError(t, os.WriteFile(bogus, []byte("{not json"), 0o600))

	infos, err := service.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byName := map[string]Info{}
	for _, info := range infos {
		byName[info.Name] = info
	}
	require.False(t, byName[filepath.Base(bogus)].Valid)

	valid := 0
	for _, info := range infos {
		if info.Valid {
			valid++
		}
	}
	require.Equal(t, 1, valid)
}
