package csrf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/core/csrf"
)

func TestGuard(t *testing.T) {
	t.Parallel()

	guard := csrf.New()

	t.Run("issues unique opaque tokens", func(t *testing.T) {
		t.Parallel()

		seen := make(map[string]bool)
		for range 100 {
			token, err := guard.Issue()
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(token), 43) // 32 bytes base64url
			assert.False(t, seen[token], "token repeated")
			seen[token] = true
		}
	})

	t.Run("validates exact match only", func(t *testing.T) {
		t.Parallel()

		token, err := guard.Issue()
		require.NoError(t, err)

		assert.True(t, guard.Validate(token, token))
		assert.False(t, guard.Validate(token, token+"x"))
		assert.False(t, guard.Validate(token, token[:len(token)-1]))
	})

	t.Run("empty tokens never validate", func(t *testing.T) {
		t.Parallel()

		assert.False(t, guard.Validate("", ""))
		assert.False(t, guard.Validate("expected", ""))
		assert.False(t, guard.Validate("", "presented"))
	})

	t.Run("rotation invalidates previous token", func(t *testing.T) {
		t.Parallel()

		current, err := guard.Issue()
		require.NoError(t, err)

		rotated, err := guard.Rotate()
		require.NoError(t, err)
		require.NotEqual(t, current, rotated)

		// After the session adopts the rotated token, the old one fails.
		assert.False(t, guard.Validate(rotated, current))
		assert.True(t, guard.Validate(rotated, rotated))
	})
}
