package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

// tokenBytes is the entropy of an issued token (256 bits).
const tokenBytes = 32

// Guard issues and validates anti-CSRF tokens for the double-submit
// pattern: the token is stored server-side on the session and echoed
// back by the client in a request header. Tokens are opaque random
// values; validation is an exact constant-time comparison.
type Guard struct{}

// New creates a CSRF guard.
func New() *Guard {
	return &Guard{}
}

// Issue generates a fresh token. The caller stores it on the session
// and returns it to the client in the response body or header, never
// in a cookie.
func (g *Guard) Issue() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Rotate issues a replacement token. Called after every state-changing
// response so a captured token from a previous response stops working,
// closing the replay window.
func (g *Guard) Rotate() (string, error) {
	return g.Issue()
}

// Validate reports whether the presented token matches the expected
// one. The comparison is constant-time to avoid leaking token bytes
// through response timing. Empty expected or presented tokens never
// validate.
func (g *Guard) Validate(expected, presented string) bool {
	if expected == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}
