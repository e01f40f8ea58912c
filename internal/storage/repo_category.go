package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type categoryRepository struct {
	db *sql.DB
}

func (r *categoryRepository) Create(ctx context.Context, category *Category) error {
	if err := validateCategory(category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}

	category.ID = ensureID(category.ID)
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO categories(id, name) VALUES(?, ?)
	`, category.ID, category.Name); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) Get(ctx context.Context, id string) (*Category, error) {
	var category Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name FROM categories WHERE id = ?
	`, id).Scan(&category.ID, &category.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*Category, error) {
	var category Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name FROM categories WHERE name = ?
	`, name).Scan(&category.ID, &category.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		out = append(out, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: iterate: %w", err)
	}
	return out, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *Category) error {
	if err := validateCategory(category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if category.ID == "" {
		return fmt.Errorf("update category: %w: id is required", ErrValidation)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ? WHERE id = ?
	`, category.Name, category.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete refuses to remove a category while any task references it. It is a
// precondition-checked delete, not a cascade.
func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	var referencing int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks WHERE category_id = ?
	`, id).Scan(&referencing); err != nil {
		return fmt.Errorf("delete category: count referencing tasks: %w", err)
	}
	if referencing > 0 {
		return fmt.Errorf("delete category: %w: %d task(s) still reference it", ErrReferential, referencing)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category: rows affected: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
