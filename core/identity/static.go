package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// StaticVerifier validates assertions against a single configured RSA
// public key. Intended for development and tests where running a JWKS
// endpoint is overkill; selected at startup via Config.Mode, never as
// a runtime fallback for the provider-backed verifier.
type StaticVerifier struct {
	parser *jwt.Parser
	keyPEM []byte
}

var _ Verifier = (*StaticVerifier)(nil)

// NewStaticVerifier creates a verifier pinned to the PEM-encoded RSA
// public key in cfg.StaticKeyPEM.
func NewStaticVerifier(cfg Config) (*StaticVerifier, error) {
	if cfg.StaticKeyPEM == "" {
		return nil, ErrInvalidStaticKey
	}

	// Parse eagerly so a bad key fails at startup, not per request.
	if _, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.StaticKeyPEM)); err != nil {
		return nil, errors.Join(ErrInvalidStaticKey, err)
	}

	return &StaticVerifier{
		parser: newParser(cfg),
		keyPEM: []byte(cfg.StaticKeyPEM),
	}, nil
}

// Verify validates the assertion against the static key.
func (v *StaticVerifier) Verify(ctx context.Context, assertion string) (VerifiedIdentity, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(assertion, claims, func(token *jwt.Token) (any, error) {
		return jwt.ParseRSAPublicKeyFromPEM(v.keyPEM)
	})
	if err != nil {
		return VerifiedIdentity{}, classifyError(err)
	}

	return extractIdentity(claims)
}

// NewFromConfig selects the verifier implementation by configuration.
func NewFromConfig(cfg Config) (Verifier, error) {
	switch cfg.Mode {
	case "static":
		return NewStaticVerifier(cfg)
	case "jwks", "":
		return NewJWKSVerifier(cfg)
	default:
		return nil, ErrUnknownMode
	}
}
