package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/chatter-pad/internal/config"
	"github.com/iliyamo/chatter-pad/internal/middleware"
	"github.com/iliyamo/chatter-pad/internal/model"
	"github.com/iliyamo/chatter-pad/internal/repository"
	"github.com/iliyamo/chatter-pad/internal/utils"
)

// UserStore is the account storage the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, email, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// SessionStore persists login sessions.
type SessionStore interface {
	Store(ctx context.Context, email, idHash string, exp time.Time) error
	Revoke(ctx context.Context, idHash string) error
	RevokeAll(ctx context.Context, email string) error
}

// Disconnector drops every realtime connection of an identity.
type Disconnector interface {
	Disconnect(identity string)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
	Sockets  Disconnector
}

func NewAuthHandler(cfg config.Config, u UserStore, s SessionStore, sockets Disconnector) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s, Sockets: sockets}
}

type credentialsReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type authResp struct {
	Email   string    `json:"email"`
	Expires time.Time `json:"expires"`
}

// Create registers an account and logs it in.
func (h *AuthHandler) Create(c echo.Context) error {
	var req credentialsReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	email := repository.NormalizeEmail(req.Email)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.Create(ctx, email, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		logrus.WithError(err).Error("create user failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return h.startSession(ctx, c, email)
}

// Login verifies credentials and starts a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if ok, err := bind(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		logrus.WithError(err).Error("load user failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.startSession(ctx, c, u.Email)
}

func (h *AuthHandler) startSession(ctx context.Context, c echo.Context, email string) error {
	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, email, h.Cfg.SessionTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue session failed"})
	}
	if err := h.Sessions.Store(ctx, email, utils.HashSessionID(tok.SessionID), tok.Exp); err != nil {
		logrus.WithError(err).Error("store session failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save session failed"})
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    tok.Token,
		Path:     "/",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, authResp{Email: email, Expires: tok.Exp})
}

// Logout revokes the current session, or with ?all=true every session of
// the caller, and closes the caller's realtime connections (protected).
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var err error
	if c.QueryParam("all") == "true" {
		err = h.Sessions.RevokeAll(ctx, middleware.Identity(c))
	} else {
		err = h.Sessions.Revoke(ctx, utils.HashSessionID(middleware.SessionID(c)))
	}
	if err != nil {
		logrus.WithError(err).Error("revoke session failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	if h.Sockets != nil {
		h.Sockets.Disconnect(middleware.Identity(c))
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}
