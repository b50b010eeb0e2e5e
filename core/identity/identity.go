package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifiedIdentity is the normalized subject record extracted from a
// successfully verified assertion. It is the only identity data the
// rest of the system ever sees; the raw assertion is never persisted.
type VerifiedIdentity struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	Attributes    map[string]any
}

// Verifier validates an externally issued identity assertion and
// extracts the subject it proves. Implementations must treat provider
// outages (ErrProviderUnreachable) as distinct from rejected
// credentials so callers can keep outages out of lockout accounting.
type Verifier interface {
	Verify(ctx context.Context, assertion string) (VerifiedIdentity, error)
}

// Config holds provider and validation settings shared by verifier
// implementations.
type Config struct {
	// Mode selects the verifier implementation: "jwks" or "static".
	Mode     string `env:"IDENTITY_MODE" envDefault:"jwks"`
	JWKSURL  string `env:"IDENTITY_JWKS_URL" envDefault:""`
	Issuer   string `env:"IDENTITY_ISSUER" envDefault:""`
	Audience string `env:"IDENTITY_AUDIENCE" envDefault:""`
	// StaticKeyPEM is the PEM-encoded RSA public key for static mode.
	StaticKeyPEM string        `env:"IDENTITY_STATIC_KEY" envDefault:""`
	ClockSkew    time.Duration `env:"IDENTITY_CLOCK_SKEW" envDefault:"60s"`
	// ProviderTimeout bounds a single JWKS fetch round-trip.
	ProviderTimeout time.Duration `env:"IDENTITY_PROVIDER_TIMEOUT" envDefault:"5s"`
	// MaxRetries bounds JWKS fetch retries on provider failure.
	MaxRetries uint64 `env:"IDENTITY_PROVIDER_MAX_RETRIES" envDefault:"2"`
}

// newParser builds a JWT parser enforcing the shared validation rules:
// expiry required, clock-skew leeway, issuer and audience pinning.
func newParser(cfg Config) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithValidMethods([]string{"RS256"}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return jwt.NewParser(opts...)
}

// classifyError maps jwt library failures onto the package taxonomy.
// Provider errors surfaced through the keyfunc pass through unchanged.
func classifyError(err error) error {
	switch {
	case errors.Is(err, ErrProviderUnreachable):
		return err
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.Join(ErrExpiredAssertion, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return errors.Join(ErrAudienceMismatch, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.Join(ErrInvalidSignature, err)
	default:
		return errors.Join(ErrMalformedAssertion, err)
	}
}

// extractIdentity normalizes token claims into a VerifiedIdentity.
// Standard registered claims are dropped; anything else is preserved
// as a display attribute.
func extractIdentity(claims jwt.MapClaims) (VerifiedIdentity, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return VerifiedIdentity{}, ErrMissingSubject
	}

	ident := VerifiedIdentity{
		SubjectID:  sub,
		Attributes: make(map[string]any),
	}

	if v, ok := claims["email"].(string); ok {
		ident.Email = v
	}
	if v, ok := claims["email_verified"].(bool); ok {
		ident.EmailVerified = v
	}

	registered := map[string]bool{
		"sub": true, "email": true, "email_verified": true,
		"iss": true, "aud": true, "exp": true, "iat": true,
		"nbf": true, "jti": true,
	}
	for k, v := range claims {
		if !registered[k] {
			ident.Attributes[k] = v
		}
	}

	return ident, nil
}
