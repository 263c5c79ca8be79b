package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/chatter-pad/internal/config"
	"github.com/iliyamo/chatter-pad/internal/repository"
	"github.com/iliyamo/chatter-pad/internal/utils"
)

const secret = "test-secret"

type sessions map[string]string

func (s sessions) Validate(_ context.Context, idHash string) (string, error) {
	if email, ok := s[idHash]; ok {
		return email, nil
	}
	return "", repository.ErrSessionInvalid
}

func whoami(c echo.Context) error {
	return c.String(http.StatusOK, Identity(c))
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSessionAuth(t *testing.T) {
	tok, err := utils.NewSessionToken(secret, "a@x.io", time.Hour)
	require.NoError(t, err)
	revoked, err := utils.NewSessionToken(secret, "a@x.io", time.Hour)
	require.NoError(t, err)
	store := sessions{utils.HashSessionID(tok.SessionID): "a@x.io"}

	e := echo.New()
	e.GET("/me", whoami, SessionAuth(secret, store))

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: tok.Token})
		rec := serve(e, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a@x.io", rec.Body.String())
	})
	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		assert.Equal(t, http.StatusOK, serve(e, req).Code)
	})
	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
	})
	t.Run("revoked session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: revoked.Token})
		assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
	})
	t.Run("bad signature", func(t *testing.T) {
		forged, err := utils.NewSessionToken("other", "a@x.io", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: forged.Token})
		assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
	})
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestTokenBucket(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, newRedis(t)))

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestTokenBucket_DisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	}
}

func TestRedisCache(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "cache",
		MaxBodyBytes: 1024,
	}
	calls := 0
	e := echo.New()
	e.GET("/board", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, newRedis(t)))

	first := serve(e, httptest.NewRequest(http.MethodGet, "/board?limit=3", nil))
	second := serve(e, httptest.NewRequest(http.MethodGet, "/board?limit=3", nil))
	other := serve(e, httptest.NewRequest(http.MethodGet, "/board?limit=4", nil))

	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, echo.MIMEApplicationJSON, second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestCacheEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	entry, err := encodeEntry(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, gotHdr, body, ok := decodeEntry(entry)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, gotHdr)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodeEntry(entry[:5])
	assert.False(t, ok)
}

func TestRedisCache_DoesNotReplayPerRequestHeaders(t *testing.T) {
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "cache",
		MaxBodyBytes: 1024,
	}
	n := 0
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			n++
			h := c.Response().Header()
			h.Set(echo.HeaderXRequestID, fmt.Sprintf("req-%d", n))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(10-n))
			return next(c)
		}
	})
	e.GET("/board", func(c echo.Context) error {
		c.Response().Header().Set("X-Board", "gold")
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}, NewRedisCache(cfg, newRedis(t)))

	serve(e, httptest.NewRequest(http.MethodGet, "/board", nil))
	hit := serve(e, httptest.NewRequest(http.MethodGet, "/board", nil))

	require.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, []string{"req-2"}, hit.Header().Values(echo.HeaderXRequestID))
	assert.Equal(t, []string{"8"}, hit.Header().Values("X-RateLimit-Remaining"))
	assert.Equal(t, "gold", hit.Header().Get("X-Board"))
}
