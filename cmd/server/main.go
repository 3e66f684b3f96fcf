package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/cira/cira-backend/internal/api"
	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/database"
	"github.com/cira/cira-backend/internal/mailer"
	"github.com/cira/cira-backend/internal/storage"
	"github.com/cira/cira-backend/internal/tasks"
	"github.com/cira/cira-backend/pkg/config"
	"github.com/cira/cira-backend/pkg/queue"
	"github.com/cira/cira-backend/pkg/util"
	"github.com/hibiken/asynq"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting Cira server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, email dispatch falls back to inline SMTP", "error", err)
		redisClient = nil
	}

	// Email goes through the queue when Redis is up, otherwise inline.
	var asynqClient *asynq.Client
	var mail mailer.Mailer = mailer.NewSMTPMailer(&cfg.SMTP)
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		mail = tasks.NewQueueMailer(asynqClient)
	}

	// Initialize file storage
	store, err := storage.New(cfg.Storage.Dir, cfg.Server.BaseURL)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService, mail, logger, cfg.Reset.FrontendURL)

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:            db,
		Redis:         redisClient,
		Logger:        logger,
		JWTService:    jwtService,
		AuthService:   authService,
		Store:         store,
		RateLimitReqs: cfg.RateLimit.Requests,
		RateLimitSecs: cfg.RateLimit.WindowSeconds,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
