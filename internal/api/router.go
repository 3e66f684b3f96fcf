package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/cira/cira-backend/internal/api/handlers"
	"github.com/cira/cira-backend/internal/api/middleware"
	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/dashboard"
	"github.com/cira/cira-backend/internal/storage"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	Store          *storage.Store
	AllowedOrigins []string
	RateLimitReqs  int
	RateLimitSecs  int
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize services
	dashboardService := dashboard.NewService(cfg.DB)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	companyHandler := handlers.NewCompanyHandler(cfg.DB, cfg.Store)
	partnerHandler := handlers.NewPartnerHandler(cfg.DB, cfg.Store)
	employeeHandler := handlers.NewEmployeeHandler(cfg.DB, cfg.Store)
	consultationHandler := handlers.NewConsultationHandler(cfg.DB)
	referralHandler := handlers.NewReferralHandler(cfg.DB)
	fileHandler := handlers.NewFileHandler(cfg.Store)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/verify-otp", authHandler.VerifyOTP)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/reset-password", authHandler.ResetPassword)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService))

			r.Get("/me", authHandler.Me)
			r.Get("/dashboard", dashboardHandler.Summary)

			r.Route("/companies", func(r chi.Router) {
				r.Get("/", companyHandler.List)
				r.Post("/", companyHandler.Create)
				r.Get("/{id}", companyHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(auth.RoleAdmin))
					r.Put("/{id}", companyHandler.Update)
					r.Delete("/{id}", companyHandler.Delete)
				})
			})

			r.Route("/partners", func(r chi.Router) {
				r.Get("/", partnerHandler.List)
				r.Post("/", partnerHandler.Create)
				r.Get("/{id}", partnerHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(auth.RoleAdmin))
					r.Put("/{id}", partnerHandler.Update)
					r.Delete("/{id}", partnerHandler.Delete)
				})
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", employeeHandler.List)
				r.Post("/", employeeHandler.Create)
				r.Get("/{id}", employeeHandler.Get)
				r.Put("/{id}", employeeHandler.Update)
				r.Delete("/{id}", employeeHandler.Delete)
			})

			r.Route("/consultations", func(r chi.Router) {
				r.Get("/", consultationHandler.List)
				r.Post("/", consultationHandler.Create)
			})

			r.Route("/doctor-referrals", func(r chi.Router) {
				r.Get("/", referralHandler.List)
				r.Post("/", referralHandler.Create)
			})

			r.Put("/cira-cloud/upload/{filename}", fileHandler.Upload)
		})
	})

	// Stored uploads are public; URLs are unguessable.
	fileServer := http.FileServer(http.Dir(cfg.Store.Dir()))
	r.Handle("/cira-cloud/*", http.StripPrefix("/cira-cloud/", fileServer))

	return &Router{r}
}
