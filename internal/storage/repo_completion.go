package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type completionRepository struct {
	db *sql.DB
}

func (r *completionRepository) Create(ctx context.Context, completion *Completion) error {
	if err := validateCompletion(completion); err != nil {
		return fmt.Errorf("create completion: %w", err)
	}
	if err := r.taskExists(ctx, completion.TaskID); err != nil {
		return fmt.Errorf("create completion: %w", err)
	}

	completion.ID = ensureID(completion.ID)
	completion.CreatedAt = nowUTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO completions(id, date, task_id, minutes, created_at)
		VALUES(?, ?, ?, ?, ?)
	`, completion.ID, completion.Date, completion.TaskID,
		nullableMinutes(completion.Minutes), fmtTime(completion.CreatedAt))
	if err != nil {
		return fmt.Errorf("create completion: %w", err)
	}
	return nil
}

func (r *completionRepository) Get(ctx context.Context, id string) (*Completion, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, task_id, minutes, created_at FROM completions WHERE id = ?
	`, id)
	completion, err := scanCompletion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return completion, nil
}

func (r *completionRepository) ListByDate(ctx context.Context, date string) ([]Completion, error) {
	return r.list(ctx, `
		SELECT id, date, task_id, minutes, created_at
		FROM completions
		WHERE date = ?
		ORDER BY created_at ASC
	`, date)
}

func (r *completionRepository) ListRange(ctx context.Context, start, end string) ([]Completion, error) {
	return r.list(ctx, `
		SELECT id, date, task_id, minutes, created_at
		FROM completions
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, created_at ASC
	`, start, end)
}

func (r *completionRepository) ListByTask(ctx context.Context, taskID string) ([]Completion, error) {
	return r.list(ctx, `
		SELECT id, date, task_id, minutes, created_at
		FROM completions
		WHERE task_id = ?
		ORDER BY date ASC
	`, taskID)
}

// Toggle flips the completion state for (date, taskID) as a single atomic
// unit: the lookup and the insert or delete happen inside one transaction,
// so two interleaved calls cannot both observe "absent" and both insert.
func (r *completionRepository) Toggle(ctx context.Context, date, taskID string, minutes *int) (bool, error) {
	if err := ValidateDate(date); err != nil {
		return false, fmt.Errorf("toggle completion: %w", err)
	}
	if taskID == "" {
		return false, fmt.Errorf("toggle completion: %w: task id is required", ErrValidation)
	}
	if minutes != nil && *minutes < 0 {
		return false, fmt.Errorf("toggle completion: %w: minutes must be >= 0, got %d", ErrValidation, *minutes)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("toggle completion: begin tx: %w", err)
	}

	var existingID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM completions WHERE date = ? AND task_id = ?
	`, date, taskID).Scan(&existingID)

	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE id = ?`, existingID); err != nil {
			_ = tx.Rollback()
			return false, fmt.Errorf("toggle completion: delete: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("toggle completion: commit: %w", err)
		}
		return false, nil

	case errors.Is(err, sql.ErrNoRows):
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, taskID).Scan(&one); err != nil {
			_ = tx.Rollback()
			if errors.Is(err, sql.ErrNoRows) {
				return false, fmt.Errorf("toggle completion: %w: task %q does not exist", ErrReferential, taskID)
			}
			return false, fmt.Errorf("toggle completion: check task: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO completions(id, date, task_id, minutes, created_at)
			VALUES(?, ?, ?, ?, ?)
		`, ensureID(""), date, taskID, nullableMinutes(minutes), fmtTime(nowUTC())); err != nil {
			_ = tx.Rollback()
			return false, fmt.Errorf("toggle completion: insert: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("toggle completion: commit: %w", err)
		}
		return true, nil

	default:
		_ = tx.Rollback()
		return false, fmt.Errorf("toggle completion: lookup: %w", err)
	}
}

func (r *completionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM completions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete completion: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *completionRepository) DeleteByTask(ctx context.Context, taskID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM completions WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("delete completions by task: %w", err)
	}
	return nil
}

func (r *completionRepository) list(ctx context.Context, query string, args ...any) ([]Completion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var out []Completion
	for rows.Next() {
		completion, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("list completions: %w", err)
		}
		out = append(out, *completion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list completions: iterate: %w", err)
	}
	return out, nil
}

func (r *completionRepository) taskExists(ctx context.Context, taskID string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, taskID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: task %q does not exist", ErrReferential, taskID)
	}
	if err != nil {
		return fmt.Errorf("check task: %w", err)
	}
	return nil
}

func scanCompletion(row rowScanner) (*Completion, error) {
	var (
		completion Completion
		minutes    sql.NullInt64
		createdAt  string
	)
	if err := row.Scan(&completion.ID, &completion.Date, &completion.TaskID, &minutes, &createdAt); err != nil {
		return nil, err
	}
	completion.Minutes = minutesFromNullable(minutes)

	var err error
	completion.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &completion, nil
}
