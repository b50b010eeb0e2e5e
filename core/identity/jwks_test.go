package identity_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/core/identity"
)

// jwksHandler serves the signer's public key as a JWKS document.
func jwksHandler(s *signer, calls *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}

		n := base64.RawURLEncoding.EncodeToString(s.key.N.Bytes())
		e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(s.key.E)).Bytes())

		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"use": "sig",
				"kid": "test-key",
				"alg": "RS256",
				"n":   n,
				"e":   e,
			}},
		})
	}
}

func jwksConfig(url string) identity.Config {
	return identity.Config{
		Mode:            "jwks",
		JWKSURL:         url,
		Issuer:          testIssuer,
		Audience:        testAudience,
		ClockSkew:       time.Minute,
		ProviderTimeout: 2 * time.Second,
		MaxRetries:      0,
	}
}

func TestJWKSVerifier(t *testing.T) {
	t.Parallel()

	t.Run("verifies against fetched key set", func(t *testing.T) {
		t.Parallel()

		s := newSigner(t)
		srv := httptest.NewServer(jwksHandler(s, nil))
		defer srv.Close()

		verifier, err := identity.NewJWKSVerifier(jwksConfig(srv.URL))
		require.NoError(t, err)

		ident, err := verifier.Verify(context.Background(), s.sign(t, validClaims()))
		require.NoError(t, err)
		assert.Equal(t, "subject-1", ident.SubjectID)
	})

	t.Run("caches keys between verifications", func(t *testing.T) {
		t.Parallel()

		s := newSigner(t)
		var calls atomic.Int64
		srv := httptest.NewServer(jwksHandler(s, &calls))
		defer srv.Close()

		verifier, err := identity.NewJWKSVerifier(jwksConfig(srv.URL))
		require.NoError(t, err)

		ctx := context.Background()
		for range 3 {
			_, err := verifier.Verify(ctx, s.sign(t, validClaims()))
			require.NoError(t, err)
		}

		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("reports provider unreachable", func(t *testing.T) {
		t.Parallel()

		s := newSigner(t)
		srv := httptest.NewServer(jwksHandler(s, nil))
		srv.Close() // connection refused from the first attempt

		verifier, err := identity.NewJWKSVerifier(jwksConfig(srv.URL))
		require.NoError(t, err)

		_, err = verifier.Verify(context.Background(), s.sign(t, validClaims()))
		assert.ErrorIs(t, err, identity.ErrProviderUnreachable)
	})

	t.Run("falls back to cached key while provider is down", func(t *testing.T) {
		t.Parallel()

		s := newSigner(t)
		srv := httptest.NewServer(jwksHandler(s, nil))

		verifier, err := identity.NewJWKSVerifier(jwksConfig(srv.URL),
			identity.WithRefreshInterval(time.Nanosecond))
		require.NoError(t, err)

		ctx := context.Background()
		_, err = verifier.Verify(ctx, s.sign(t, validClaims()))
		require.NoError(t, err)

		srv.Close()

		// Cache is stale, refresh fails, but the known key still verifies.
		_, err = verifier.Verify(ctx, s.sign(t, validClaims()))
		assert.NoError(t, err)
	})

	t.Run("rejects bad signature with fetched keys", func(t *testing.T) {
		t.Parallel()

		s := newSigner(t)
		srv := httptest.NewServer(jwksHandler(s, nil))
		defer srv.Close()

		verifier, err := identity.NewJWKSVerifier(jwksConfig(srv.URL))
		require.NoError(t, err)

		other := newSigner(t)
		_, err = verifier.Verify(context.Background(), other.sign(t, validClaims()))
		assert.ErrorIs(t, err, identity.ErrInvalidSignature)
	})
}
