package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// withTx runs fn inside a transaction, rolling back if fn fails and
// committing otherwise. Book import is the only multi-statement write in the
// schema, so a package-level helper is enough; repositories that need
// transactional writes call it directly.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
