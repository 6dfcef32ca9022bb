package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// EnsureSalt returns the process-wide password salt, inserting the seed
// value on first boot. Once a salt is persisted it is never replaced:
// regenerating it would invalidate every stored password hash.
func (r *Repository) EnsureSalt(ctx context.Context, seed string) (string, error) {
	var salt string
	err := r.db.QueryRowContext(ctx, `SELECT salt FROM app_metadata WHERE id = 1`).Scan(&salt)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read metadata: %w", err)
	}

	// First boot. INSERT OR IGNORE keeps a concurrent boot race from
	// overwriting a salt that landed between our read and write.
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO app_metadata (id, salt) VALUES (1, ?)`, seed); err != nil {
		return "", fmt.Errorf("persist salt: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT salt FROM app_metadata WHERE id = 1`).Scan(&salt); err != nil {
		return "", fmt.Errorf("reread salt: %w", err)
	}
	return salt, nil
}
