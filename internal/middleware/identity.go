package middleware

import "github.com/labstack/echo/v4"

// Identity returns the email authenticated by SessionAuth, or "" when the
// request is anonymous.
func Identity(c echo.Context) string {
	if v, ok := c.Get(ctxIdentity).(string); ok {
		return v
	}
	return ""
}

// SessionID returns the raw session id of the authenticated request.
func SessionID(c echo.Context) string {
	if v, ok := c.Get(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// callerKey identifies the caller for rate limiting: the identity when
// authenticated, otherwise "anon".
func callerKey(c echo.Context) string {
	if id := Identity(c); id != "" {
		return id
	}
	return "anon"
}
