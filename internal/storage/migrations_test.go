package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openRawTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "ritual.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, configureSQLite(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false
	}
	require.NoError(t, err)
	return true
}

func mustSchemaVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	version, err := readSchemaVersion(db)
	require.NoError(t, err)
	return version
}

func TestRunMigrationsAppliesAllSequentially(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)

	require.NoError(t, RunMigrations(db, DefaultMigrations()))
	require.Equal(t, CurrentSchemaVersion(), mustSchemaVersion(t, db))

	for _, table := range []string{"schema_migrations", "categories", "tasks", "entries", "completions", "settings"} {
		require.Truef(t, tableExists(t, db, table), "expected table %s to exist", table)
	}

	records, err := AppliedMigrations(db)
	require.NoError(t, err)
	require.Len(t, records, len(DefaultMigrations()))
	for i, record := range records {
		require.Equal(t, i+1, record.Version)
		require.False(t, record.AppliedAt.IsZero())
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)
	require.NoError(t, RunMigrations(db, DefaultMigrations()))

	before, err := AppliedMigrations(db)
	require.NoError(t, err)

	// Re-running applies nothing and appends nothing to the ledger.
	require.NoError(t, RunMigrations(db, DefaultMigrations()))

	after, err := AppliedMigrations(db)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestRunMigrationsIsAtomic(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)

	migrations := []Migration{
		{
			Version:     1,
			Description: "create a",
			Statements:  []string{`CREATE TABLE test_a (id TEXT PRIMARY KEY)`},
		},
		{
			Version:     2,
			Description: "create b then fail",
			Statements: []string{
				`CREATE TABLE test_b (id TEXT PRIMARY KEY)`,
				`THIS IS NOT SQL`,
			},
		},
	}

	err := RunMigrations(db, migrations)
	require.Error(t, err)
	require.Equal(t, 1, mustSchemaVersion(t, db))
	require.True(t, tableExists(t, db, "test_a"))
	require.False(t, tableExists(t, db, "test_b"))
}

func TestRunMigrationsRefusesNewerSchema(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)
	require.NoError(t, RunMigrations(db, DefaultMigrations()))

	_, err := db.Exec(`INSERT INTO schema_migrations(version, applied_at) VALUES (?, ?)`,
		CurrentSchemaVersion()+1, fmtTime(nowUTC()))
	require.NoError(t, err)

	err = RunMigrations(db, DefaultMigrations())
	require.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestMigrationsUpgradePopulatedStore(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)

	// Stop at v1 and seed a task with completions referencing it. The v2
	// table rebuild must carry the live references across the drop/rename.
	v1 := DefaultMigrations()[:1]
	require.NoError(t, RunMigrations(db, v1))

	now := fmtTime(nowUTC())
	_, err := db.Exec(`
		INSERT INTO tasks(id, title, category, created_at, updated_at)
		VALUES('t1', 'invoices', 'business', ?, ?)
	`, now, now)
	require.NoError(t, err)
	for _, completion := range []struct{ id, date string }{
		{"p1", "2025-01-14"},
		{"p2", "2025-01-15"},
	} {
		_, err := db.Exec(`
			INSERT INTO completions(id, date, task_id, created_at)
			VALUES(?, ?, 't1', ?)
		`, completion.id, completion.date, now)
		require.NoError(t, err)
	}

	require.NoError(t, RunMigrations(db, DefaultMigrations()))
	require.Equal(t, CurrentSchemaVersion(), mustSchemaVersion(t, db))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM completions WHERE task_id = 't1'`).Scan(&count))
	require.Equal(t, 2, count)

	// Enforcement is back on and the upgraded database is clean.
	var enforced int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&enforced))
	require.Equal(t, 1, enforced)
	var violation string
	err = db.QueryRow(`PRAGMA foreign_key_check`).Scan(&violation)
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRunMigrationsRejectsDanglingReferences(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)
	require.NoError(t, RunMigrations(db, DefaultMigrations()))

	// A migration that deletes a referenced task must fail the pre-commit
	// foreign key check and roll back entirely.
	now := fmtTime(nowUTC())
	_, err := db.Exec(`
		INSERT INTO tasks(id, title, category_id, created_at, updated_at)
		VALUES('t1', 'invoices', ?, ?, ?)
	`, defaultBusinessCategoryID, now, now)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO completions(id, date, task_id, created_at)
		VALUES('p1', '2025-01-15', 't1', ?)
	`, now)
	require.NoError(t, err)

	bad := append(DefaultMigrations(), Migration{
		Version:     CurrentSchemaVersion() + 1,
		Description: "delete a referenced task",
		Statements:  []string{`DELETE FROM tasks WHERE id = 't1'`},
	})

	err = RunMigrations(db, bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "foreign key check")

	// Rolled back: the task is still present and the version unchanged.
	require.Equal(t, CurrentSchemaVersion(), mustSchemaVersion(t, db))
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE id = 't1'`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestCategoryNormalizationPreservesEveryRow(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)

	// Stop at v1 and write legacy rows with free-text categories.
	v1 := DefaultMigrations()[:1]
	require.NoError(t, RunMigrations(db, v1))

	now := fmtTime(nowUTC())
	legacy := []struct{ id, title, category string }{
		{"t1", "invoices", "business"},
		{"t2", "run", "life"},
		{"t3", "mystery", "chores"}, // no matching category row
	}
	for _, row := range legacy {
		_, err := db.Exec(`
			INSERT INTO tasks(id, title, category, created_at, updated_at)
			VALUES(?, ?, ?, ?, ?)
		`, row.id, row.title, row.category, now, now)
		require.NoError(t, err)
	}

	require.NoError(t, RunMigrations(db, DefaultMigrations()))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count))
	require.Equal(t, len(legacy), count)

	var businessID string
	require.NoError(t, db.QueryRow(`SELECT id FROM categories WHERE name = 'business'`).Scan(&businessID))
	var lifeID string
	require.NoError(t, db.QueryRow(`SELECT id FROM categories WHERE name = 'life'`).Scan(&lifeID))

	assertTaskCategory := func(taskID, wantCategoryID string) {
		var got string
		require.NoError(t, db.QueryRow(`SELECT category_id FROM tasks WHERE id = ?`, taskID).Scan(&got))
		require.Equal(t, wantCategoryID, got)
	}
	assertTaskCategory("t1", businessID)
	assertTaskCategory("t2", lifeID)
	// Unknown free-text category falls back to the default.
	assertTaskCategory("t3", lifeID)
}
