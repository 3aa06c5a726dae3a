package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fluffytime/chat-server-go/internal/config"
	"github.com/fluffytime/chat-server-go/internal/database"
	"github.com/fluffytime/chat-server-go/internal/handler"
	"github.com/fluffytime/chat-server-go/internal/jobs"
	"github.com/fluffytime/chat-server-go/internal/middleware"
	"github.com/fluffytime/chat-server-go/internal/pubsub"
	"github.com/fluffytime/chat-server-go/internal/redis"
	"github.com/fluffytime/chat-server-go/internal/repository"
	"github.com/fluffytime/chat-server-go/internal/service"
	"github.com/fluffytime/chat-server-go/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	roomRepo := repository.NewRoomRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	roomTxRunner := repository.NewRoomTxRunner(db)

	tokenizer := token.NewTokenizer(
		cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessTTL(), cfg.RefreshTTL(),
	)

	identityService := service.NewIdentityService(userRepo, tokenizer)
	roomService := service.NewRoomService(roomRepo, roomTxRunner)
	messageService := service.NewMessageService(messageRepo)

	bus := pubsub.NewRedisBus(redisClient)
	manager := pubsub.NewManager(bus, func(ctx context.Context, env pubsub.Envelope) {
		roomID, err := roomService.RoomID(ctx, env.RoomName)
		if err != nil {
			log.Warn().Err(err).Str("roomName", env.RoomName).Msg("dropping message for unknown room")
			return
		}
		if _, err := messageService.Append(ctx, roomID, env.Sender, env.Content); err != nil {
			log.Error().Err(err).Str("roomName", env.RoomName).Msg("failed to persist message")
		}
	})
	defer manager.Close()

	chatService := service.NewChatService(identityService, roomService, messageService, manager, manager)

	authMiddleware := middleware.NewAuthMiddleware(identityService)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.RateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	chatHandler := handler.NewChatHandler(chatService)
	streamHandler := handler.NewStreamHandler(manager)
	authHandler := handler.NewAuthHandler(identityService, tokenizer, cfg.AccessTTL(), isProduction)

	chatRoutes := chatHandler.Routes()
	chatRoutes.Route("/stream", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Get("/{roomName}", streamHandler.ServeHTTP)
	})

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]any{
				"status":    "ok",
				"timestamp": time.Now().UnixMilli(),
			})
		})

		r.Mount("/auth", authHandler.Routes())
	})

	// SSE connections under /chat/stream outlive any request deadline, so the
	// chat subtree carries no timeout middleware.
	r.Route("/chat", func(r chi.Router) {
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", chatRoutes)
	})

	cleanupJob := jobs.NewCleanupJob(roomRepo, messageRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
