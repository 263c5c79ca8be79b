package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	tok, err := NewSessionToken("s3cret", "a@x.io", time.Hour)
	require.NoError(t, err)

	claims, err := ParseSessionToken("s3cret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", claims.Subject)
	assert.Equal(t, tok.SessionID, claims.SessionID)
	assert.Len(t, HashSessionID(tok.SessionID), 64)
}

func TestSessionToken_Rejects(t *testing.T) {
	tok, err := NewSessionToken("s3cret", "a@x.io", time.Hour)
	require.NoError(t, err)
	expired, err := NewSessionToken("s3cret", "a@x.io", -time.Minute)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": tok.Token,
		"expired":      expired.Token,
		"garbage":      "not.a.jwt",
	} {
		secret := "s3cret"
		if name == "wrong secret" {
			secret = "other"
		}
		_, err := ParseSessionToken(secret, raw)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
}

func TestHashPassword_InvalidCostUsesDefault(t *testing.T) {
	hash, err := HashPassword("hunter22", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
