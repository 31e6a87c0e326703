package credential_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/credential"
)

const testSecret = "test-secret-key"

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		tok, err := credential.Issue("user-1", testSecret, time.Hour)
		require.NoError(t, err)
		require.NotEmpty(t, tok)

		claims, err := credential.Verify(tok, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.PrincipalID)
		assert.Greater(t, claims.ExpiresAt, claims.IssuedAt)
	})

	t.Run("no expiry when ttl is zero", func(t *testing.T) {
		t.Parallel()

		tok, err := credential.Issue("user-1", testSecret, 0)
		require.NoError(t, err)

		claims, err := credential.Verify(tok, testSecret)
		require.NoError(t, err)
		assert.Zero(t, claims.ExpiresAt)
	})

	t.Run("empty principal rejected", func(t *testing.T) {
		t.Parallel()

		_, err := credential.Issue("", testSecret, time.Hour)
		assert.ErrorIs(t, err, credential.ErrInvalidCredential)
	})
}

func TestVerifyFailures(t *testing.T) {
	t.Parallel()

	t.Run("malformed token", func(t *testing.T) {
		t.Parallel()

		for _, tok := range []string{"", "no-dot", "a.b.c", "!!!.###"} {
			_, err := credential.Verify(tok, testSecret)
			assert.ErrorIs(t, err, credential.ErrInvalidCredential, "token %q", tok)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()

		tok, err := credential.Issue("user-1", testSecret, time.Hour)
		require.NoError(t, err)

		_, err = credential.Verify(tok, "another-secret")
		assert.ErrorIs(t, err, credential.ErrInvalidCredential)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()

		tok, err := credential.Issue("user-1", testSecret, time.Hour)
		require.NoError(t, err)

		parts := strings.SplitN(tok, ".", 2)
		tampered := parts[0][:len(parts[0])-2] + "xx" + "." + parts[1]

		_, err = credential.Verify(tampered, testSecret)
		assert.ErrorIs(t, err, credential.ErrInvalidCredential)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()

		tok, err := credential.Issue("user-1", testSecret, -time.Minute)
		require.NoError(t, err)

		_, err = credential.Verify(tok, testSecret)
		assert.ErrorIs(t, err, credential.ErrExpiredCredential)
	})
}

func TestClaimsExpired(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	assert.False(t, credential.Claims{ExpiresAt: 0}.Expired(now))
	assert.False(t, credential.Claims{ExpiresAt: now.Add(time.Minute).Unix()}.Expired(now))
	assert.True(t, credential.Claims{ExpiresAt: now.Add(-time.Minute).Unix()}.Expired(now))
	assert.True(t, credential.Claims{ExpiresAt: now.Unix()}.Expired(now))
}
