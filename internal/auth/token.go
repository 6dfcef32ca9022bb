package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomToken returns a hex-encoded token with nBytes of entropy from
// crypto/rand. Session tokens use 32 bytes, reset token ids 16.
func RandomToken(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
