package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type taskRepository struct {
	db *sql.DB
}

func (r *taskRepository) Create(ctx context.Context, task *Task) error {
	if err := validateTask(task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	if err := r.categoryExists(ctx, task.CategoryID); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	task.ID = ensureID(task.ID)
	now := nowUTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks(id, title, category_id, default_minutes, archived, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.Title, task.CategoryID, nullableMinutes(task.DefaultMinutes),
		boolToInt(task.Archived), fmtTime(task.CreatedAt), fmtTime(task.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *taskRepository) Get(ctx context.Context, id string) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, category_id, default_minutes, archived, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]Task, error) {
	query := `
		SELECT id, title, category_id, default_minutes, archived, created_at, updated_at
		FROM tasks
		WHERE 1=1
	`
	args := []any{}

	if !filter.IncludeArchived {
		query += ` AND archived = 0 `
	}
	if filter.CategoryID != "" {
		query += ` AND category_id = ? `
		args = append(args, filter.CategoryID)
	}
	query += ` ORDER BY title ASC `

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		out = append(out, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: iterate: %w", err)
	}
	return out, nil
}

func (r *taskRepository) Update(ctx context.Context, task *Task) error {
	if err := validateTask(task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if task.ID == "" {
		return fmt.Errorf("update task: %w: id is required", ErrValidation)
	}
	if err := r.categoryExists(ctx, task.CategoryID); err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	task.UpdatedAt = nowUTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, category_id = ?, default_minutes = ?, archived = ?, updated_at = ?
		WHERE id = ?
	`, task.Title, task.CategoryID, nullableMinutes(task.DefaultMinutes),
		boolToInt(task.Archived), fmtTime(task.UpdatedAt), task.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Archive soft-deletes a task, preserving its completion history.
func (r *taskRepository) Archive(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET archived = 1, updated_at = ? WHERE id = ?
	`, fmtTime(nowUTC()), id)
	if err != nil {
		return fmt.Errorf("archive task: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive task: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes a task and cascades to its completions in one
// transaction.
func (r *taskRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete task: begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE task_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete task: cascade completions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete task: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete task: rows affected: %w", err)
	}
	if count == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete task: commit: %w", err)
	}
	return nil
}

func (r *taskRepository) categoryExists(ctx context.Context, categoryID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE id = ?`, categoryID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: category %q does not exist", ErrReferential, categoryID)
	}
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		task      Task
		minutes   sql.NullInt64
		archived  int
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&task.ID, &task.Title, &task.CategoryID, &minutes, &archived, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	task.DefaultMinutes = minutesFromNullable(minutes)
	task.Archived = archived == 1

	var err error
	task.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	task.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
