package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/email"
	"tally/internal/log"
)

// UserStore is the slice of user persistence the reset flow needs.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
}

// ResetTokenStore persists password-reset tokens.
type ResetTokenStore interface {
	CreateResetToken(ctx context.Context, t core.PasswordResetToken) error
	GetResetToken(ctx context.Context, id string) (core.PasswordResetToken, error)
	DeleteResetToken(ctx context.Context, id string) error
	// ConsumeResetToken atomically updates the password hash and deletes
	// the token; it fails with core.ErrInvalidToken if the token is gone.
	ConsumeResetToken(ctx context.Context, tokenID string, userID int64, newHash string) error
}

// ResetService drives the password-reset token state machine:
// issued -> consumed (password changed, token gone), or issued ->
// expired (token deleted on the failed attempt so it cannot linger).
//
// Issuing a second token does not invalidate earlier live ones; each
// expires or is consumed independently.
type ResetService struct {
	users   UserStore
	tokens  ResetTokenStore
	sender  email.Sender
	hasher  *Hasher
	clock   core.Clock
	ttl     time.Duration
	baseURL string
	logger  *log.Logger
}

func NewResetService(users UserStore, tokens ResetTokenStore, sender email.Sender,
	hasher *Hasher, clock core.Clock, ttl time.Duration, baseURL string, logger *log.Logger) *ResetService {
	return &ResetService{
		users:   users,
		tokens:  tokens,
		sender:  sender,
		hasher:  hasher,
		clock:   clock,
		ttl:     ttl,
		baseURL: baseURL,
		logger:  logger.WithComponent(log.ComponentAuth),
	}
}

// Request issues a reset token for username and emails it. An unknown
// username returns the same nil as a known one, with no token and no
// email, so the endpoint cannot be used to probe for accounts.
func (s *ResetService) Request(ctx context.Context, username string) error {
	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.InfoContext(ctx, "password reset requested for unknown username")
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}

	id, err := RandomToken(16)
	if err != nil {
		return err
	}

	token := core.PasswordResetToken{
		ID:         id,
		UserID:     user.ID,
		Expiration: s.clock().Add(s.ttl),
	}
	if err := s.tokens.CreateResetToken(ctx, token); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Visit %s/reset?token=%s within %d minutes to choose a new password.\n\n"+
			"If you did not request this, you can ignore this message.",
		s.baseURL, token.ID, int(s.ttl.Minutes()),
	)
	if err := s.sender.Send(user.Email, "Password reset", body); err != nil {
		// Delivery failure is logged, not surfaced: surfacing it would
		// leak account existence through the response.
		s.logger.ErrorContext(ctx, "failed to send reset email",
			log.FieldError, err,
			log.FieldUserID, user.ID,
		)
	}

	s.logger.InfoContext(ctx, "password reset token issued", log.FieldUserID, user.ID)
	return nil
}

// Reset consumes tokenID and sets a new password. Unknown tokens fail
// with ErrInvalidToken and change nothing; expired tokens are deleted
// and fail with ErrTokenExpired.
func (s *ResetService) Reset(ctx context.Context, tokenID, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return core.Invalid("password cannot be empty")
	}

	token, err := s.tokens.GetResetToken(ctx, tokenID)
	if errors.Is(err, core.ErrNotFound) {
		return core.ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("look up reset token: %w", err)
	}

	if s.clock().After(token.Expiration) {
		if err := s.tokens.DeleteResetToken(ctx, token.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete expired reset token", log.FieldError, err)
		}
		return core.ErrTokenExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	if err := s.tokens.ConsumeResetToken(ctx, token.ID, token.UserID, hash); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset completed", log.FieldUserID, token.UserID)
	return nil
}
