package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chatter-pad/internal/utils"
)

// CookieName is the cookie carrying the session token.
const CookieName = "authToken"

// Context keys set by SessionAuth.
const (
	ctxIdentity  = "identity"
	ctxSessionID = "session_id"
)

// SessionValidator resolves a hashed session id to its owner.
type SessionValidator interface {
	Validate(ctx context.Context, idHash string) (string, error)
}

// SessionAuth returns an Echo middleware that accepts a session token from
// the authToken cookie or a Bearer header, verifies its signature and checks
// that the session has not been revoked. The owner's email is stored in the
// context; handlers read it with Identity.
func SessionAuth(secret string, sessions SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
			}
			claims, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
			defer cancel()
			email, err := sessions.Validate(ctx, utils.HashSessionID(claims.SessionID))
			if err != nil || email != claims.Subject {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session expired"})
			}

			c.Set(ctxIdentity, email)
			c.Set(ctxSessionID, claims.SessionID)
			return next(c)
		}
	}
}

func tokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
