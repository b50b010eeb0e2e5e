package identity

import "errors"

var (
	// ErrExpiredAssertion is returned when the assertion is outside its
	// validity window even after clock-skew leeway.
	ErrExpiredAssertion = errors.New("identity assertion has expired")
	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("identity assertion signature is invalid")
	// ErrAudienceMismatch is returned when the assertion was issued for a
	// different audience.
	ErrAudienceMismatch = errors.New("identity assertion audience mismatch")
	// ErrMalformedAssertion is returned for assertions that cannot be
	// parsed or fail structural validation.
	ErrMalformedAssertion = errors.New("identity assertion is malformed")
	// ErrMissingSubject is returned when a verified assertion carries no
	// subject claim.
	ErrMissingSubject = errors.New("identity assertion has no subject")
	// ErrProviderUnreachable is returned when the identity provider
	// cannot be reached. Retryable infrastructure failure, not a
	// rejected credential; callers must not count it toward lockout.
	ErrProviderUnreachable = errors.New("identity provider unreachable")
	// ErrKeyNotFound is returned when the provider's key set has no key
	// matching the assertion's key id.
	ErrKeyNotFound = errors.New("signing key not found in provider key set")
	// ErrInvalidStaticKey is returned when the configured static public
	// key cannot be parsed.
	ErrInvalidStaticKey = errors.New("invalid static public key")
	// ErrMissingJWKSURL is returned when jwks mode is selected without a
	// key set URL.
	ErrMissingJWKSURL = errors.New("jwks url is required")
	// ErrUnknownMode is returned for an unrecognized verifier mode.
	ErrUnknownMode = errors.New("unknown identity verifier mode")
)
