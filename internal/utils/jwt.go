package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionToken is a signed HS256 JWT sent to the browser in the authToken
// cookie. Its subject is the user's email and its "sid" claim a random
// session id whose hash is stored server side, so logging out revokes the
// token before it expires.
type SessionToken struct {
	Token     string    // the serialized JWT string
	SessionID string    // raw session id carried in the token
	Exp       time.Time // the UTC expiration time
}

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// ErrInvalidToken is returned by ParseSessionToken for any token that is
// malformed, badly signed or expired.
var ErrInvalidToken = errors.New("invalid token")

// NewSessionToken builds and signs a session token for email.
func NewSessionToken(secret, email string, ttl time.Duration) (SessionToken, error) {
	sid, err := randomHex(32)
	if err != nil {
		return SessionToken{}, err
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, SessionID: sid, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns its claims.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	var claims SessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid || claims.Subject == "" || claims.SessionID == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	return claims, nil
}

// HashSessionID returns the SHA-256 hash of a raw session id as a hex
// string. Only this hash is stored in the database.
func HashSessionID(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
