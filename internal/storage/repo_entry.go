package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type entryRepository struct {
	db *sql.DB
}

func (r *entryRepository) Create(ctx context.Context, entry *Entry) error {
	if err := validateEntry(entry); err != nil {
		return fmt.Errorf("create entry: %w", err)
	}

	entry.ID = ensureID(entry.ID)
	now := nowUTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries(id, date, note, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?)
	`, entry.ID, entry.Date, entry.Note, fmtTime(entry.CreatedAt), fmtTime(entry.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

func (r *entryRepository) Get(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, note, created_at, updated_at FROM entries WHERE id = ?
	`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

func (r *entryRepository) GetByDate(ctx context.Context, date string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, note, created_at, updated_at FROM entries WHERE date = ?
	`, date)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entry by date: %w", err)
	}
	return entry, nil
}

func (r *entryRepository) ListRange(ctx context.Context, start, end string) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, note, created_at, updated_at
		FROM entries
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: iterate: %w", err)
	}
	return out, nil
}

func (r *entryRepository) Update(ctx context.Context, entry *Entry) error {
	if err := validateEntry(entry); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if entry.ID == "" {
		return fmt.Errorf("update entry: %w: id is required", ErrValidation)
	}

	entry.UpdatedAt = nowUTC()
	result, err := r.db.ExecContext(ctx, `
		UPDATE entries SET date = ?, note = ?, updated_at = ? WHERE id = ?
	`, entry.Date, entry.Note, fmtTime(entry.UpdatedAt), entry.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertByDate writes the journal note for a date, creating the entry when
// the date has none yet.
func (r *entryRepository) UpsertByDate(ctx context.Context, date, note string) (*Entry, error) {
	if err := ValidateDate(date); err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}

	now := fmtTime(nowUTC())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries(id, date, note, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET note = excluded.note, updated_at = excluded.updated_at
	`, ensureID(""), date, note, now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}
	return r.GetByDate(ctx, date)
}

func (r *entryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry     Entry
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&entry.ID, &entry.Date, &entry.Note, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	entry.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	entry.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
