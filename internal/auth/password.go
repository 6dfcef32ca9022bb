// Package auth owns credentials: password hashing with the process-wide
// salt, and the password-reset token lifecycle.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes passwords with bcrypt. The salt is the process-wide
// value persisted in the metadata table at first boot; it is prepended
// to the password before hashing (bcrypt embeds its own per-hash salt
// as well), so losing or regenerating it invalidates every stored hash.
type Hasher struct {
	salt string
	cost int
}

func NewHasher(salt string, cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{salt: salt, cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(h.salt+password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored hash.
func (h *Hasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(h.salt+password)) == nil
}
