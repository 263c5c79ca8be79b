package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/chatter-pad/internal/config"
	"github.com/iliyamo/chatter-pad/internal/database"
	"github.com/iliyamo/chatter-pad/internal/handler"
	"github.com/iliyamo/chatter-pad/internal/hub"
	"github.com/iliyamo/chatter-pad/internal/middleware"
	"github.com/iliyamo/chatter-pad/internal/queue"
	"github.com/iliyamo/chatter-pad/internal/repository"
	"github.com/iliyamo/chatter-pad/internal/room"
	"github.com/iliyamo/chatter-pad/internal/router"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("could not read .env")
	}

	cfg := config.Load()
	setupLogging(cfg)

	roomCfg, err := config.LoadRoomConfig()
	if err != nil {
		logrus.WithError(err).Fatal("invalid room config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		logrus.WithError(err).Fatal("database migration failed")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logrus.Warn("redis unavailable; leaderboard reads mysql, rate limiting and caching are off")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	participants := repository.NewParticipantRepo(db)
	store := repository.NewRoomStore(participants, repository.NewChatRepo(db))
	leaderboard := repository.NewLeaderboard(rdb, participants)

	var activity room.ActivitySink
	var publisher *queue.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL)
		defer publisher.Close()
		activity = publisher
	}

	persister := room.NewPersister(store, leaderboard, activity, roomCfg.PersistQueue)
	rm := room.New(room.NewState(roomCfg.Options(), nil), store, persister)
	if err := rm.Restore(ctx); err != nil {
		logrus.WithError(err).Warn("room restore incomplete")
	}
	// Rebuilt before the persister and the ticker start writing balances.
	if err := leaderboard.Rebuild(ctx); err != nil {
		logrus.WithError(err).Warn("leaderboard rebuild failed; serving from mysql")
	}

	sockets := hub.NewHub(rm, hub.Options{SendBuffer: roomCfg.SendBuffer, MaxMessageSize: roomCfg.MaxMessageSize})
	rm.Attach(sockets)

	// The persister outlives the other workers so the presence writes of
	// connections closed during shutdown still reach the database.
	persistCtx, stopPersist := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		_ = persister.Run(persistCtx)
	}()
	go func() { _ = room.NewCurrencyTicker(rm, roomCfg.TickInterval, nil).Run(ctx) }()
	go func() { _ = sockets.RunProbe(ctx, roomCfg.ProbeInterval) }()
	if cfg.RabbitURL != "" {
		go func() {
			if err := queue.StartActivityConsumer(ctx, cfg.RabbitURL, cfg.ActivityLogPath); err != nil && !errors.Is(err, context.Canceled) {
				logrus.WithError(err).Error("activity consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.RegisterRoutes(e, router.Deps{
		Auth:      handler.NewAuthHandler(cfg, users, sessions, sockets),
		Room:      handler.NewRoomHandler(rm, leaderboard),
		WS:        handler.NewWSHandler(sockets, cfg.AllowedOrigin),
		Sessions:  sessions,
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	})

	addr := ":" + cfg.Port
	go func() {
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("http shutdown")
	}
	sockets.Shutdown()
	waitClosed(shutdownCtx, sockets)
	stopPersist()
	workers.Wait()
}

func setupLogging(cfg config.Config) {
	logrus.SetOutput(os.Stdout)
	if cfg.Env == "prod" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// waitClosed waits until every connection has unregistered from the room.
func waitClosed(ctx context.Context, sockets *hub.Hub) {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for sockets.Len() > 0 {
		select {
		case <-ctx.Done():
			logrus.WithField("open", sockets.Len()).Warn("connections still open at shutdown")
			return
		case <-t.C:
		}
	}
}
