package integrity

import (
	"context"
	"path/filepath"
	"testing"

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

// corrupt runs statements with foreign key enforcement suspended, simulating
// external damage the repositories would normally refuse.
func corrupt(t *testing.T, store *storage.Store, statements ...string) {
	t.Helper()
	db := store.DB()
	_, err := db.Exec(`PRAGMA foreign_keys=OFF`)
	require.NoError(t, err)
	for _, stmt := range statements {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	_, err = db.Exec(`PRAGMA foreign_keys=ON`)
	require.NoError(t, err)
}

func TestCheckCleanStoreIsValid(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	category := &storage.Category{Name: "health"}
	require.NoError(t, store.Categories.Create(ctx, category))
	task := &storage.Task{Title: "stretch", CategoryID: category.ID}
	require.NoError(t, store.Tasks.Create(ctx, task))
	_, err := store.Completions.Toggle(ctx, "2025-01-15", task.ID, nil)
	require.NoError(t, err)
	_, err = store.Entries.UpsertByDate(ctx, "2025-01-15", "fine")
	require.NoError(t, err)

	report, err := NewChecker(store).Check(ctx)
	require.NoError(t, err)
	require.True(t, report.IsValid)
	require.Empty(t, report.Errors)
}

func TestCheckFlagsOrphanedCompletion(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	corrupt(t, store, `
		INSERT INTO completions(id, date, task_id, created_at)
		VALUES('orphan-c', '2025-01-15', 'ghost-task', '2025-01-15T08:00:00Z')
	`)

	report, err := NewChecker(store).Check(ctx)
	require.NoError(t, err)
	require.False(t, report.IsValid)
	require.Contains(t, report.Corrupted.Completions, "orphan-c")
}

func TestCheckFlagsOrphanedTask(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	corrupt(t, store, `
		INSERT INTO tasks(id, title, category_id, archived, created_at, updated_at)
		VALUES('orphan-t', 'lost', 'ghost-category', 0, '2025-01-15T08:00:00Z', '2025-01-15T08:00:00Z')
	`)

	report, err := NewChecker(store).Check(ctx)
	require.NoError(t, err)
	require.False(t, report.IsValid)
	require.Contains(t, report.Corrupted.Tasks, "orphan-t")
}

func TestWarningsDoNotInvalidate(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	// Negative minutes bypass repository validation to simulate old data.
	category := &storage.Category{Name: "health"}
	require.NoError(t, store.Categories.Create(ctx, category))
	task := &storage.Task{Title: "stretch", CategoryID: category.ID}
	require.NoError(t, store.Tasks.Create(ctx, task))
	corrupt(t, store, `
		INSERT INTO completions(id, date, task_id, minutes, created_at)
		VALUES('neg-c', '2025-01-15', '`+task.ID+`', -5, '2025-01-15T08:00:00Z')
	`)

	report, err := NewChecker(store).Check(ctx)
	require.NoError(t, err)
	require.True(t, report.IsValid)
	require.NotEmpty(t, report.Warnings)
}

func TestRepairDeletesOrphanedCompletionsAndArchivesOrphanedTasks(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	corrupt(t, store,
		`INSERT INTO completions(id, date, task_id, created_at)
		 VALUES('orphan-c', '2025-01-15', 'ghost-task', '2025-01-15T08:00:00Z')`,
		`INSERT INTO tasks(id, title, category_id, archived, created_at, updated_at)
		 VALUES('orphan-t', 'lost', 'ghost-category', 0, '2025-01-15T08:00:00Z', '2025-01-15T08:00:00Z')`,
	)

	checker := NewChecker(store)
	result, err := checker.Repair(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.DeletedCompletions)
	require.Equal(t, 1, result.ArchivedTasks)

	// The completion is gone.
	_, err = store.Completions.Get(ctx, "orphan-c")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// The task survives, archived.
	task, err := store.Tasks.Get(ctx, "orphan-t")
	require.NoError(t, err)
	require.True(t, task.Archived)

	// A second check comes back clean.
	report, err := checker.Check(ctx)
	require.NoError(t, err)
	require.True(t, report.IsValid)
}

func TestRepairOnCleanStoreIsNoOp(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	result, err := NewChecker(store).Repair(context.Background())
	require.NoError(t, err)
	require.Zero(t, result.DeletedCompletions)
	require.Zero(t, result.ArchivedTasks)
}
