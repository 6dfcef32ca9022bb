package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
)

func (r *Repository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expiration) VALUES (?, ?, ?)`,
		s.Token, s.UserID, s.Expiration,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, token string) (core.Session, error) {
	var s core.Session
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, expiration FROM sessions WHERE token = ?`, token,
	).Scan(&s.Token, &s.UserID, &s.Expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, core.ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("scan session: %w", err)
	}
	return s, nil
}

// SaveSession persists an extended expiration. The expiration only ever
// moves forward; the WHERE guard keeps a slow writer from shrinking a
// window another validation already extended.
func (r *Repository) SaveSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expiration = ? WHERE token = ? AND expiration < ?`,
		s.Expiration, s.Token, s.Expiration,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions reaps every session whose window has closed and
// returns how many were removed.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expiration < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
