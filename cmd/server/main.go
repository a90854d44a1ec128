package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/tullo/modchat/config"
	"github.com/tullo/modchat/internal/auth"
	"github.com/tullo/modchat/internal/cache"
	"github.com/tullo/modchat/internal/chat"
	"github.com/tullo/modchat/internal/commands"
	"github.com/tullo/modchat/internal/handlers"
	"github.com/tullo/modchat/internal/history"
	"github.com/tullo/modchat/internal/middleware"
	"github.com/tullo/modchat/internal/moderator"
	"github.com/tullo/modchat/internal/repository"
	"github.com/tullo/modchat/internal/websocket"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.IsProduction() {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("Failed to load config")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the durable store
	store, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open store")
	}
	defer store.Close()
	logger.Info().Str("backend", cfg.Store.Backend).Msg("Store opened")

	// Restore state
	loadCtx, cancelLoad := context.WithTimeout(ctx, 30*time.Second)
	moderation := moderator.NewState(repository.NewModerationRepository(store), nil)
	if err := moderation.Load(loadCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load moderation state")
	}
	hist := history.NewBuffer(repository.NewMessageRepository(store), cfg.Chat.HistoryCapacity)
	if err := hist.Load(loadCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load history")
	}
	cancelLoad()
	logger.Info().
		Int("bans", len(moderation.Bans())).
		Int("banned_words", len(moderation.BannedWords())).
		Int("messages", hist.Len()).
		Msg("State restored")

	// Rate limiting: Redis when reachable, in-process otherwise
	localLimiter := middleware.NewRateLimiter(cfg.API.RateLimitMessagesPerSec)
	localLimiter.Cleanup(ctx.Done())
	var submitLimiter websocket.Limiter = localLimiter
	redis, err := cache.NewRedisClient(ctx, cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, rate limiting is per process")
	} else {
		defer redis.Close()
		rps := cfg.API.RateLimitMessagesPerSec
		submitLimiter = cache.NewLimiter(redis, "submit", rps, rps*2, localLimiter)
	}

	// Core and fanout
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	core := chat.NewCore(logger, chat.Options{
		AdminTokens:      cfg.Chat.AdminTokens,
		Rooms:            cfg.Chat.Rooms,
		MaxRooms:         cfg.Chat.MaxRooms,
		MuteDefault:      cfg.Chat.MuteDefault,
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		WriteTimeout:     cfg.Store.WriteTimeout,
	},
		auth.NewManager(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)),
		moderation,
		hist,
		commands.NewDefaultRegistry(),
		hub,
	)
	coreDone := make(chan error, 1)
	go func() { coreDone <- core.Run(ctx) }()

	if len(cfg.Chat.AdminTokens) == 0 {
		logger.Warn().Msg("ADMIN_TOKENS is empty, admin commands are disabled")
	}

	// Handlers
	wsHandler := websocket.NewHandler(hub, core, submitLimiter, cfg.CORS.AllowedOrigins, logger)
	historyHandler := handlers.NewHistoryHandler(core, cfg.DefaultRoom())
	adminHandler := handlers.NewAdminHandler(core, logger)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": hub.Count()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws", wsHandler.HandleWebSocket)

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(localLimiter))
	{
		api.GET("/history", historyHandler.GetHistory)
		api.GET("/rooms", historyHandler.GetRooms)
		api.POST("/admin", adminHandler.Execute)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Server.Env).Msg("Starting modchat server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown failed")
	}

	// the core flushes moderation state and history before returning
	if err := <-coreDone; err != nil {
		logger.Error().Err(err).Msg("Final flush failed")
	}
	logger.Info().Msg("Server stopped")
}
