package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/labres/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, c jwtx.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("not-the-server-key"))
	require.NoError(t, err)
	return tok
}

func TestParseUnverified(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tok := sign(t, jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
		Username: "jdoe",
		Name:     "Jane Doe",
		Admin:    true,
		RoleID:   3,
	})

	c, err := jwtx.ParseUnverified(tok)
	require.NoError(t, err)
	require.Equal(t, "42", c.Subject)
	require.Equal(t, "jdoe", c.Username)
	require.Equal(t, "Jane Doe", c.Name)
	require.True(t, c.Admin)
	require.Equal(t, 3, c.RoleID)
	require.Equal(t, 5*time.Minute, c.ExpiresIn(now))
}

func TestParseUnverifiedIgnoresExpiry(t *testing.T) {
	// Decoding an expired token still works; expiry is the server's call.
	tok := sign(t, jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Username: "old",
	})

	c, err := jwtx.ParseUnverified(tok)
	require.NoError(t, err)
	require.Equal(t, "old", c.Username)
	require.ErrorIs(t, c.ValidateExpiryWithLeeway(time.Now(), 30*time.Second), jwtx.ErrExpired)
}

func TestParseUnverifiedMalformed(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b", "a.!!!.c"} {
		_, err := jwtx.ParseUnverified(tok)
		require.ErrorIs(t, err, jwtx.ErrMalformed, tok)
	}
}

func TestValidateExpiryWithLeeway(t *testing.T) {
	now := time.Now().UTC()

	t.Run("inside leeway", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
		}}
		require.NoError(t, c.ValidateExpiryWithLeeway(now, 30*time.Second))
	})

	t.Run("no exp", func(t *testing.T) {
		require.NoError(t, (&jwtx.Claims{}).ValidateExpiryWithLeeway(now, 0))
		require.Zero(t, (&jwtx.Claims{}).ExpiresIn(now))
	})
}
