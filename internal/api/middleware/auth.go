package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cira/cira-backend/internal/auth"
	"github.com/google/uuid"
)

type contextKey string

const (
	AccountIDKey contextKey = "account_id"
	RoleKey      contextKey = "role"
	EmailKey     contextKey = "email"
)

// Auth validates the Bearer token and injects the session claims into
// the request context. Every failure mode gets the same 401 body so
// callers cannot distinguish missing from malformed from expired.
func Auth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				unauthorized(w)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, AccountIDKey, claims.AccountID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
}

// Helper functions to extract values from context
func GetAccountID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(AccountIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetRole(ctx context.Context) auth.Role {
	if role, ok := ctx.Value(RoleKey).(auth.Role); ok {
		return role
	}
	return ""
}

func GetEmail(ctx context.Context) string {
	if email, ok := ctx.Value(EmailKey).(string); ok {
		return email
	}
	return ""
}

// RequireRole ensures the caller holds one of the given roles
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerRole := GetRole(r.Context())

			for _, role := range roles {
				if callerRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Forbidden"})
		})
	}
}
