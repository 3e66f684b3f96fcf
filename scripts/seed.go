//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/database"
	"github.com/cira/cira-backend/internal/mailer"
	"github.com/cira/cira-backend/pkg/config"
	"github.com/cira/cira-backend/pkg/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	mail := mailer.NewSMTPMailer(&cfg.SMTP)
	authService := auth.NewService(db, jwtService, mail, logger, cfg.Reset.FrontendURL)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	firstName := os.Getenv("ADMIN_FIRST_NAME")

	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}
	if firstName == "" {
		firstName = "Admin"
	}

	id, err := authService.Register(context.Background(), auth.RegisterInput{
		Role:      auth.RoleAdmin,
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  "User",
	})
	if err != nil {
		if err == auth.ErrEmailTaken {
			fmt.Printf("admin %s already exists, nothing to do\n", email)
			return
		}
		log.Fatalf("failed to seed admin: %v", err)
	}

	fmt.Printf("seeded admin account %s (%s)\n", email, id)
}
