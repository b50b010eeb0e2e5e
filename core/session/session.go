package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session is a server-held record granting continued access after
// initial authentication. The Token field is the opaque value carried
// by the session cookie; ID is the stable internal identifier used for
// storage and audit references.
//
// Invariant: ExpiresAt = LastActivityAt + ttl. The window slides on
// every valid activity and is recomputed, never extended beyond the
// configured timeout.
type Session struct {
	ID uuid.UUID

	// Token is the cryptographically random cookie value (32 bytes,
	// base64url). Rotated on authentication so a pre-login cookie can
	// never name an authenticated session.
	Token string

	// SubjectID is the verified identity this session belongs to.
	// Empty for anonymous (pre-login) sessions.
	SubjectID string

	IP        string
	UserAgent string

	IssuedAt       time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time

	// CSRFToken is the current double-submit token bound to this
	// session; CSRFIssuedAt records its last rotation.
	CSRFToken    string
	CSRFIssuedAt time.Time

	// RefreshedAt marks the last identity re-verification. Drives the
	// proactive refresh window, which is shorter than the session TTL
	// so provider tokens are renewed well before they expire.
	RefreshedAt time.Time

	// Version guards read-modify-write cycles. Stores reject a Save
	// whose Version does not match the stored record.
	Version int64
}

// IsAuthenticated reports whether the session belongs to a verified subject.
func (s Session) IsAuthenticated() bool {
	return s.SubjectID != "" && s.Token != ""
}

// IsExpired reports whether the sliding window has elapsed.
func (s Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// generateToken creates a cryptographically secure random token using
// 32 bytes (256 bits) encoded as base64 URL-safe without padding.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
