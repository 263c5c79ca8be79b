package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/chatter-pad/internal/hub"
	"github.com/iliyamo/chatter-pad/internal/middleware"
)

// WSHandler upgrades authenticated requests to websocket connections and
// hands them to the hub.
type WSHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWSHandler returns a handler accepting connections from allowedOrigin,
// or from any origin when it is empty.
func NewWSHandler(h *hub.Hub, allowedOrigin string) *WSHandler {
	if h == nil {
		panic("Hub cannot be nil for WSHandler")
	}
	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return allowedOrigin == "" || r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// Connect upgrades the request. The identity comes from the session, never
// from the client's frames.
func (h *WSHandler) Connect(c echo.Context) error {
	identity := middleware.Identity(c)
	if identity == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not authenticated"})
	}
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logrus.WithError(err).WithField("identity", identity).Warn("websocket upgrade failed")
		return nil
	}
	h.hub.Serve(c.Request().Context(), conn, identity)
	return nil
}
