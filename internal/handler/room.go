package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/chatter-pad/internal/middleware"
	"github.com/iliyamo/chatter-pad/internal/model"
	"github.com/iliyamo/chatter-pad/internal/room"
)

// Room is the realtime room as seen by the HTTP API.
type Room interface {
	Lookup(ctx context.Context, identity string) model.Participant
	UpdateProfile(ctx context.Context, identity string, color *string, pos *model.Position) (model.Participant, error)
	Players() []room.PlayerView
	ChatHistory() []model.ChatMessage
	PostChat(identity, text string) (model.ChatMessage, error)
}

// Ranking serves the gold leaderboard.
type Ranking interface {
	Top(ctx context.Context, limit int) ([]room.LeaderEntry, error)
}

// RoomHandler exposes room state over HTTP. Writes go through the room so
// connected clients see them.
type RoomHandler struct {
	Room    Room
	Ranking Ranking
}

func NewRoomHandler(r Room, ranking Ranking) *RoomHandler {
	return &RoomHandler{Room: r, Ranking: ranking}
}

// GetUserData returns the caller's participant record.
func (h *RoomHandler) GetUserData(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Room.Lookup(c.Request().Context(), middleware.Identity(c)))
}

type userDataReq struct {
	Color    *string         `json:"color" validate:"omitempty,min=1,max=64"`
	Position *model.Position `json:"position"`
}

// PostUserData merges color and/or position into the caller's record.
func (h *RoomHandler) PostUserData(c echo.Context) error {
	var req userDataReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if req.Color == nil && req.Position == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	p, err := h.Room.UpdateProfile(c.Request().Context(), middleware.Identity(c), req.Color, req.Position)
	if err != nil {
		if errors.Is(err, room.ErrMalformedEvent) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user data"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, p)
}

// Players lists present participants.
func (h *RoomHandler) Players(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"players": h.Room.Players()})
}

// ChatHistory returns buffered chat messages, oldest first.
func (h *RoomHandler) ChatHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"messages": h.Room.ChatHistory()})
}

type chatReq struct {
	Text string `json:"text" validate:"required,max=500"`
}

// PostChat appends a chat message and relays it to every connection.
func (h *RoomHandler) PostChat(c echo.Context) error {
	var req chatReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	msg, err := h.Room.PostChat(middleware.Identity(c), req.Text)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid chat message"})
	}
	return c.JSON(http.StatusCreated, msg)
}

// Leaderboard returns the richest participants, ?limit=n (1..100, default 10).
func (h *RoomHandler) Leaderboard(c echo.Context) error {
	limit := 10
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be between 1 and 100"})
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	top, err := h.Ranking.Top(ctx, limit)
	if err != nil {
		logrus.WithError(err).Error("leaderboard query failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "leaderboard unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"leaders": top})
}
