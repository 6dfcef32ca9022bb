package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

func (r *Repository) CreateResetToken(ctx context.Context, t core.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_resets (id, user_id, expiration) VALUES (?, ?, ?)`,
		t.ID, t.UserID, t.Expiration,
	)
	if err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}
	return nil
}

func (r *Repository) GetResetToken(ctx context.Context, id string) (core.PasswordResetToken, error) {
	var t core.PasswordResetToken
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, expiration FROM password_resets WHERE id = ?`, id,
	).Scan(&t.ID, &t.UserID, &t.Expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PasswordResetToken{}, core.ErrNotFound
	}
	if err != nil {
		return core.PasswordResetToken{}, fmt.Errorf("scan reset token: %w", err)
	}
	return t, nil
}

func (r *Repository) DeleteResetToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken updates the user's password hash and deletes the
// token in one transaction. A token that was already consumed by a
// concurrent request makes the whole operation fail with ErrInvalidToken
// and leaves the password untouched.
func (r *Repository) ConsumeResetToken(ctx context.Context, tokenID string, userID int64, newHash string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM password_resets WHERE id = ?`, tokenID)
		if err != nil {
			return fmt.Errorf("delete reset token: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return core.ErrInvalidToken
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET password_hash = ? WHERE id = ?`, newHash, userID); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
}
