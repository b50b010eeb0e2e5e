package cookie

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSecret indicates no secret was provided for cookie signing.
	ErrNoSecret = errors.New("no secret provided for cookie manager")
	// ErrSecretTooShort indicates the secret doesn't meet the minimum length.
	ErrSecretTooShort = errors.New("secret must be at least 32 characters long")
	// ErrInvalidSignature indicates signature verification failed,
	// suggesting tampering or corruption.
	ErrInvalidSignature = errors.New("cookie signature verification failed")
	// ErrCookieNotFound indicates the requested cookie doesn't exist in the request.
	ErrCookieNotFound = errors.New("cookie not found in request")
	// ErrInvalidFormat indicates the cookie value has an unexpected format.
	ErrInvalidFormat = errors.New("invalid cookie format")
)

// ErrCookieTooLarge indicates the cookie exceeds the maximum allowed size.
type ErrCookieTooLarge struct {
	Name string
	Size int
	Max  int
}

func (e ErrCookieTooLarge) Error() string {
	return fmt.Sprintf("cookie %q size %d exceeds maximum %d bytes", e.Name, e.Size, e.Max)
}
