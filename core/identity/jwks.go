package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier validates assertions against RSA public keys fetched
// from a standard JWKS endpoint (RFC 7517). Keys are cached and
// refreshed lazily; a fetch failure falls back to cached keys when
// available, so a brief provider outage does not reject valid
// assertions whose key is already known.
type JWKSVerifier struct {
	cfg        Config
	parser     *jwt.Parser
	httpClient *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey // kid -> public key
	lastFetch time.Time

	refreshInterval time.Duration
}

var _ Verifier = (*JWKSVerifier)(nil)

// JWKSOption configures a JWKSVerifier.
type JWKSOption func(*JWKSVerifier)

// WithHTTPClient sets a custom HTTP client for fetching the key set.
func WithHTTPClient(c *http.Client) JWKSOption {
	return func(v *JWKSVerifier) {
		if c != nil {
			v.httpClient = c
		}
	}
}

// WithRefreshInterval sets how long cached keys are trusted before a
// refresh is attempted. Default: 1 hour.
func WithRefreshInterval(d time.Duration) JWKSOption {
	return func(v *JWKSVerifier) {
		if d > 0 {
			v.refreshInterval = d
		}
	}
}

// NewJWKSVerifier creates a provider-backed verifier.
func NewJWKSVerifier(cfg Config, opts ...JWKSOption) (*JWKSVerifier, error) {
	if cfg.JWKSURL == "" {
		return nil, ErrMissingJWKSURL
	}

	v := &JWKSVerifier{
		cfg:             cfg,
		parser:          newParser(cfg),
		httpClient:      &http.Client{Timeout: cfg.ProviderTimeout},
		keys:            make(map[string]*rsa.PublicKey),
		refreshInterval: time.Hour,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify validates the assertion signature and claims and extracts the
// normalized identity. Returns ErrProviderUnreachable when the key set
// cannot be fetched and no cached key applies.
func (v *JWKSVerifier) Verify(ctx context.Context, assertion string) (VerifiedIdentity, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(assertion, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return v.getKey(ctx, kid)
	})
	if err != nil {
		return VerifiedIdentity{}, classifyError(err)
	}

	return extractIdentity(claims)
}

// getKey returns the public key for kid, refreshing the cache when the
// key is unknown or the cache has gone stale.
func (v *JWKSVerifier) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, found := v.keys[kid]
	stale := time.Since(v.lastFetch) > v.refreshInterval
	v.mu.RUnlock()

	if found && !stale {
		return key, nil
	}

	if err := v.refresh(ctx); err != nil {
		if found {
			return key, nil // stale key beats no key
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if key, ok := v.keys[kid]; ok {
		return key, nil
	}

	// Providers that publish a single unnamed key omit kid entirely.
	if kid == "" {
		for _, k := range v.keys {
			return k, nil
		}
	}

	return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

// refresh fetches the key set with bounded exponential backoff.
// The retry policy is data, not control flow: attempts and intervals
// come from configuration, and the caller's context cancels in-flight
// attempts when the client disconnects.
func (v *JWKSVerifier) refresh(ctx context.Context) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), v.cfg.MaxRetries),
		ctx,
	)

	keys, err := backoff.RetryWithData(func() (map[string]*rsa.PublicKey, error) {
		return v.fetchKeys(ctx)
	}, policy)
	if err != nil {
		return errors.Join(ErrProviderUnreachable, err)
	}

	v.mu.Lock()
	v.keys = keys
	v.lastFetch = time.Now()
	v.mu.Unlock()

	return nil
}

// fetchKeys performs a single JWKS endpoint round-trip.
func (v *JWKSVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks fetch returned status %d", resp.StatusCode)
	}

	var payload struct {
		Keys []jwkKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, jwk := range payload.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pub, err := jwk.rsaPublicKey()
		if err != nil {
			continue // skip malformed keys
		}
		keys[jwk.Kid] = pub
	}

	if len(keys) == 0 {
		return nil, errors.New("no valid RSA signing keys in key set")
	}

	return keys, nil
}

type jwkKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (k *jwkKey) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
