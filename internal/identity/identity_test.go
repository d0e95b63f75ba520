package identity_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openforum/chatsync/internal/domain"
	"github.com/openforum/chatsync/internal/domain/domaintest"
	"github.com/openforum/chatsync/internal/identity"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func mintToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestUserID(t *testing.T) {
	lookup := identity.NewLookup(domaintest.NewFakeClock(now))

	t.Run("valid token yields the subject", func(t *testing.T) {
		token := mintToken(t, "123", now.Add(time.Hour))

		userID, err := lookup.UserID(token)
		require.NoError(t, err)
		assert.Equal(t, "123", userID)
	})

	t.Run("expired token: ErrTokenExpired", func(t *testing.T) {
		token := mintToken(t, "123", now.Add(-time.Minute))

		_, err := lookup.UserID(token)
		assert.ErrorIs(t, err, domain.ErrTokenExpired)
	})

	t.Run("garbage token: ErrInvalidToken", func(t *testing.T) {
		_, err := lookup.UserID("not-a-jwt")
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("missing subject: ErrInvalidToken", func(t *testing.T) {
		claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
		require.NoError(t, err)

		_, err = lookup.UserID(token)
		assert.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("token without expiry is accepted", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Subject: "123"}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
		require.NoError(t, err)

		userID, err := lookup.UserID(token)
		require.NoError(t, err)
		assert.Equal(t, "123", userID)
	})
}
