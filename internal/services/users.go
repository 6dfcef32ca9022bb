package services

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/session"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
	UpdateUser(ctx context.Context, u core.User) error
}

// UserService handles registration and login. Login failures never say
// whether the username or the password was wrong.
type UserService struct {
	store    UserStore
	hasher   *auth.Hasher
	sessions *session.Manager
	logger   *log.Logger
}

func NewUserService(store UserStore, hasher *auth.Hasher, sessions *session.Manager, logger *log.Logger) *UserService {
	return &UserService{
		store:    store,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates an account. Usernames and emails are unique.
func (s *UserService) Register(ctx context.Context, username, email, password string) (core.User, error) {
	u := core.User{Username: username, Email: email}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if password == "" {
		return core.User{}, core.Invalid("password cannot be empty")
	}

	// The lookup matches either column, so checking both inputs covers a
	// fresh username paired with an already-used email.
	for _, taken := range []string{username, email} {
		if _, err := s.store.GetUserByUsername(ctx, taken); err == nil {
			return core.User{}, core.Invalid("username or email already taken")
		} else if !errors.Is(err, core.ErrNotFound) {
			return core.User{}, fmt.Errorf("check username: %w", err)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return core.User{}, err
	}
	u.PasswordHash = hash

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user registered", log.FieldUserID, created.ID)
	return created, nil
}

// Login verifies the credentials and issues a session. The username
// field also matches the account's email.
func (s *UserService) Login(ctx context.Context, username, password string) (core.User, core.Session, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.Session{}, core.ErrUnauthorized
	}
	if err != nil {
		return core.User{}, core.Session{}, fmt.Errorf("look up user: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return core.User{}, core.Session{}, core.ErrUnauthorized
	}

	sess, err := s.sessions.Issue(ctx, u.ID)
	if err != nil {
		return core.User{}, core.Session{}, err
	}
	s.logger.InfoContext(ctx, "user logged in", log.FieldUserID, u.ID)
	return u, sess, nil
}

// Logout ends the session for the given token.
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.sessions.Logout(ctx, token)
}

// Get returns a user's public profile.
func (s *UserService) Get(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

// ChangePassword verifies the current password before storing the new
// one.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, current) {
		return core.ErrUnauthorized
	}
	if next == "" {
		return core.Invalid("password cannot be empty")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.InfoContext(ctx, "password changed", log.FieldUserID, userID)
	return nil
}
