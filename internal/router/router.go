package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/chatter-pad/internal/handler"
	"github.com/iliyamo/chatter-pad/internal/middleware"
)

// Deps are the handlers and middleware the routes are built from.
type Deps struct {
	Auth      *handler.AuthHandler
	Room      *handler.RoomHandler
	WS        *handler.WSHandler
	Sessions  middleware.SessionValidator
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes registers every route on e:
//
//	GET    /healthz
//	POST   /api/auth/create, /api/auth/login
//	DELETE /api/auth/logout[?all=true]   (session)
//	GET    /api/user/data, POST /api/user/data
//	GET    /api/room/players
//	GET    /api/chat, POST /api/chat
//	GET    /api/leaderboard              (cached)
//	GET    /ws                           (session, websocket upgrade)
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Validator = handler.NewRequestValidator()
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")
	if d.RateLimit != nil {
		api.Use(d.RateLimit)
	}

	auth := api.Group("/auth")
	auth.POST("/create", d.Auth.Create)
	auth.POST("/login", d.Auth.Login)

	session := middleware.SessionAuth(d.JWTSecret, d.Sessions)
	auth.DELETE("/logout", d.Auth.Logout, session)

	api.GET("/user/data", d.Room.GetUserData, session)
	api.POST("/user/data", d.Room.PostUserData, session)
	api.GET("/room/players", d.Room.Players, session)
	api.GET("/chat", d.Room.ChatHistory, session)
	api.POST("/chat", d.Room.PostChat, session)
	if d.Cache != nil {
		api.GET("/leaderboard", d.Room.Leaderboard, session, d.Cache)
	} else {
		api.GET("/leaderboard", d.Room.Leaderboard, session)
	}

	e.GET("/ws", d.WS.Connect, session)
}
