package storage

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration is an ordered, versioned schema change. Statements execute in
// order inside a single transaction; a failure rolls the whole migration
// back and leaves the store at the previous version.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// DefaultCategoryNames are seeded by migration v2 and survive a restore
// wipe.
var DefaultCategoryNames = []string{"business", "life"}

const (
	defaultBusinessCategoryID = "c9e8b6a4-0000-4000-8000-000000000001"
	defaultLifeCategoryID     = "c9e8b6a4-0000-4000-8000-000000000002"
)

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				category TEXT NOT NULL DEFAULT 'life',
				default_minutes INTEGER,
				archived INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS entries (
				id TEXT PRIMARY KEY,
				date TEXT NOT NULL,
				note TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS completions (
				id TEXT PRIMARY KEY,
				date TEXT NOT NULL,
				task_id TEXT NOT NULL REFERENCES tasks(id),
				minutes INTEGER,
				created_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`,
			`INSERT OR IGNORE INTO settings (key, value) VALUES
				('week_start', 'sunday'),
				('backup_retention', '10')`,
		},
	},
	{
		Version:     2,
		Description: "normalize task categories",
		Statements: []string{
			// Table rebuild: the runner switches foreign key enforcement
			// off around the transaction so completions keep referencing
			// tasks(id) across the drop and rename, and verifies with
			// foreign_key_check before commit.
			`CREATE TABLE IF NOT EXISTS categories (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE
			)`,
			`INSERT OR IGNORE INTO categories (id, name) VALUES
				('` + defaultBusinessCategoryID + `', 'business'),
				('` + defaultLifeCategoryID + `', 'life')`,
			`CREATE TABLE tasks_new (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				category_id TEXT NOT NULL REFERENCES categories(id),
				default_minutes INTEGER,
				archived INTEGER NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			// Every existing row is carried over exactly once; tasks whose
			// free-text category has no matching row fall back to 'life'.
			`INSERT INTO tasks_new (id, title, category_id, default_minutes, archived, created_at, updated_at)
				SELECT t.id, t.title, COALESCE(c.id, '` + defaultLifeCategoryID + `'),
				       t.default_minutes, t.archived, t.created_at, t.updated_at
				FROM tasks t
				LEFT JOIN categories c ON c.name = t.category`,
			`DROP TABLE tasks`,
			`ALTER TABLE tasks_new RENAME TO tasks`,
		},
	},
	{
		Version:     3,
		Description: "uniqueness and range-scan indexes",
		Statements: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_completions_date_task ON completions(date, task_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_date ON entries(date)`,
			`CREATE INDEX IF NOT EXISTS idx_completions_date ON completions(date)`,
			`CREATE INDEX IF NOT EXISTS idx_completions_task ON completions(task_id)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_category ON tasks(category_id)`,
		},
	},
}

func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

func CurrentSchemaVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

// RunMigrations brings db to the highest version in migrations. Each pending
// migration executes as one atomic unit: its statements run in order inside
// a transaction and a ledger row is appended before commit. Versions already
// in the ledger are never reapplied.
func RunMigrations(db *sql.DB, migrations []Migration) error {
	if db == nil {
		return fmt.Errorf("run migrations: db is nil")
	}

	if err := ensureMigrationLedger(db); err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	current, err := readSchemaVersion(db)
	if err != nil {
		return err
	}

	maxVersion := maxMigrationVersion(ordered)
	if current > maxVersion {
		return fmt.Errorf("%w: db=%d code=%d", ErrSchemaTooNew, current, maxVersion)
	}

	for _, migration := range ordered {
		if migration.Version <= current {
			continue
		}
		if err := runMigration(db, migration); err != nil {
			return err
		}
	}

	return nil
}

// runMigration executes one migration as an atomic unit. PRAGMA foreign_keys
// is a no-op inside a transaction, so enforcement is switched off on the
// connection before the transaction begins; that lets table rebuilds drop
// and rename tables with live references. A full foreign_key_check runs
// before commit so a migration that leaves dangling references still fails
// and rolls back. Requires the single-connection pool set up by Open.
func runMigration(db *sql.DB, migration Migration) error {
	if _, err := db.Exec(`PRAGMA foreign_keys = OFF`); err != nil {
		return fmt.Errorf("disable foreign keys for migration v%d: %w", migration.Version, err)
	}

	err := func() error {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", migration.Version, err)
		}

		if err := applyMigration(tx, migration); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", migration.Version, migration.Description, err)
		}

		if err := checkForeignKeys(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations(version, applied_at) VALUES (?, ?)`,
			migration.Version, fmtTime(nowUTC())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema migration v%d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", migration.Version, err)
		}
		return nil
	}()

	if _, restoreErr := db.Exec(`PRAGMA foreign_keys = ON`); restoreErr != nil && err == nil {
		err = fmt.Errorf("restore foreign keys after migration v%d: %w", migration.Version, restoreErr)
	}
	return err
}

// checkForeignKeys reports the first dangling reference in the database.
func checkForeignKeys(tx *sql.Tx) error {
	rows, err := tx.Query(`PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var (
			table  string
			rowid  sql.NullInt64
			parent string
			fkID   int
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkID); err != nil {
			return fmt.Errorf("foreign key check: scan violation: %w", err)
		}
		return fmt.Errorf("foreign key check: %s rowid %d has a dangling reference to %s", table, rowid.Int64, parent)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	return nil
}

func applyMigration(tx *sql.Tx, migration Migration) error {
	for i, stmt := range migration.Statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// AppliedMigrations returns the ledger in ascending version order.
func AppliedMigrations(db *sql.DB) ([]SchemaMigrationRecord, error) {
	rows, err := db.Query(`SELECT version, applied_at FROM schema_migrations ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	var out []SchemaMigrationRecord
	for rows.Next() {
		var (
			record    SchemaMigrationRecord
			appliedAt string
		)
		if err := rows.Scan(&record.Version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration record: %w", err)
		}
		record.AppliedAt, err = parseTime(appliedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration records: %w", err)
	}
	return out, nil
}

func ensureMigrationLedger(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("ensure migration ledger: %w", err)
	}
	return nil
}

func readSchemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func maxMigrationVersion(migrations []Migration) int {
	max := 0
	for _, migration := range migrations {
		if migration.Version > max {
			max = migration.Version
		}
	}
	return max
}
