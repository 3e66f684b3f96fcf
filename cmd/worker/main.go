package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/cira/cira-backend/internal/mailer"
	"github.com/cira/cira-backend/internal/tasks"
	"github.com/cira/cira-backend/pkg/config"
	"github.com/cira/cira-backend/pkg/queue"
	"github.com/cira/cira-backend/pkg/util"
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

	logger.Info("starting Cira worker")

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// The worker delivers mail inline; enqueuing happens in the API.
	mail := mailer.NewSMTPMailer(&cfg.SMTP)
	handler := tasks.NewHandler(mail, logger)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	logger.Info("worker stopped")
}
