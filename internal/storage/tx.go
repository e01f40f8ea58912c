package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ExecuteTransaction begins a transaction, runs fn, and commits. Any error
// from fn rolls the store back to its pre-transaction state and is returned
// wrapped. A started transaction always runs to commit or rollback; the
// context is consulted only when the transaction begins.
func (s *Store) ExecuteTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("execute transaction: begin: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("execute transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("execute transaction: commit: %w", err)
	}
	return nil
}
