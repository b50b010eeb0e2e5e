package csrf

import "errors"

var (
	// ErrTokenGeneration is returned when random token generation fails.
	ErrTokenGeneration = errors.New("failed to generate csrf token")
	// ErrTokenMismatch is returned by callers when a presented token
	// does not match the session's current token.
	ErrTokenMismatch = errors.New("csrf token mismatch")
)
