// Package session issues and validates opaque bearer tokens with a
// sliding expiration window.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/log"
)

// DefaultWindow is how far each successful validation pushes the
// expiration into the future.
const DefaultWindow = 14 * 24 * time.Hour

// Store persists sessions.
type Store interface {
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, token string) (core.Session, error)
	SaveSession(ctx context.Context, s core.Session) error
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Validate is the pure sliding-window transition: given the stored
// session and the current time it either returns the session with its
// expiration extended, or ErrTokenExpired. It never extends an already
// expired session, and never moves the expiration backwards.
func Validate(stored core.Session, now time.Time, window time.Duration) (core.Session, error) {
	if now.After(stored.Expiration) {
		return core.Session{}, core.ErrTokenExpired
	}
	if extended := now.Add(window); extended.After(stored.Expiration) {
		stored.Expiration = extended
	}
	return stored, nil
}

// Manager wires the pure transition to the store and the clock.
type Manager struct {
	store  Store
	clock  core.Clock
	window time.Duration
	logger *log.Logger
}

func NewManager(store Store, clock core.Clock, window time.Duration, logger *log.Logger) *Manager {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Manager{
		store:  store,
		clock:  clock,
		window: window,
		logger: logger.WithComponent(log.ComponentSession),
	}
}

// Issue creates a fresh session for userID.
func (m *Manager) Issue(ctx context.Context, userID int64) (core.Session, error) {
	token, err := auth.RandomToken(32)
	if err != nil {
		return core.Session{}, err
	}
	s := core.Session{
		Token:      token,
		UserID:     userID,
		Expiration: m.clock().Add(m.window),
	}
	if err := m.store.CreateSession(ctx, s); err != nil {
		return core.Session{}, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

// Authenticate validates token and, on success, persists the extended
// expiration. Unknown and expired tokens both fail with ErrUnauthorized
// so callers cannot distinguish them.
func (m *Manager) Authenticate(ctx context.Context, token string) (core.Session, error) {
	stored, err := m.store.GetSession(ctx, token)
	if errors.Is(err, core.ErrNotFound) {
		return core.Session{}, core.ErrUnauthorized
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("look up session: %w", err)
	}

	extended, err := Validate(stored, m.clock(), m.window)
	if err != nil {
		// Expired: leave the record for the reaper, fail the check.
		return core.Session{}, core.ErrUnauthorized
	}

	if err := m.store.SaveSession(ctx, extended); err != nil {
		return core.Session{}, fmt.Errorf("extend session: %w", err)
	}
	return extended, nil
}

// Logout deletes the session immediately. Unknown tokens are a no-op.
func (m *Manager) Logout(ctx context.Context, token string) error {
	return m.store.DeleteSession(ctx, token)
}

// Reap physically deletes every expired session.
func (m *Manager) Reap(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpiredSessions(ctx, m.clock())
	if err != nil {
		return 0, fmt.Errorf("reap sessions: %w", err)
	}
	if n > 0 {
		m.logger.InfoContext(ctx, "reaped expired sessions", log.FieldCount, n)
	}
	return n, nil
}
