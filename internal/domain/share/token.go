package share

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenBytes is the entropy of a generated share token
const TokenBytes = 32

// TokenGenerator produces a new public share token
type TokenGenerator func() (string, error)

// GenerateToken returns a URL-safe token carrying TokenBytes of
// cryptographic randomness.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
