package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cira/cira-backend/internal/api/middleware"
	"github.com/cira/cira-backend/internal/auth"
)

func TestAuthMiddleware(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	accountID := uuid.New()

	handler := middleware.Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, accountID, middleware.GetAccountID(r.Context()))
		assert.Equal(t, auth.RoleCompany, middleware.GetRole(r.Context()))
		assert.Equal(t, "acct@example.com", middleware.GetEmail(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("passes with a valid bearer token", func(t *testing.T) {
		token, err := jwtService.GenerateToken(accountID, auth.RoleCompany, "acct@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("every failure mode yields the same 401 body", func(t *testing.T) {
		expired := auth.NewJWTService("test-secret", -time.Minute)
		expiredToken, err := expired.GenerateToken(accountID, auth.RoleCompany, "acct@example.com")
		require.NoError(t, err)

		cases := map[string]func(r *http.Request){
			"missing header":  func(r *http.Request) {},
			"not bearer":      func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
			"empty bearer":    func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") },
			"garbage token":   func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") },
			"expired token":   func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expiredToken) },
			"tampered token":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expiredToken+"x") },
			"token in cookie": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: expiredToken}) },
		}

		var bodies []string
		for name, arrange := range cases {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			arrange(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code, name)
			bodies = append(bodies, rr.Body.String())
		}

		for _, body := range bodies[1:] {
			assert.Equal(t, bodies[0], body)
		}
	})
}

func TestRequireRole(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", time.Hour)

	newHandler := func(roles ...auth.Role) http.Handler {
		ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return middleware.Auth(jwtService)(middleware.RequireRole(roles...)(ok))
	}

	request := func(t *testing.T, h http.Handler, role auth.Role) *httptest.ResponseRecorder {
		t.Helper()
		token, err := jwtService.GenerateToken(uuid.New(), role, "x@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	t.Run("allows a matching role", func(t *testing.T) {
		rr := request(t, newHandler(auth.RoleAdmin), auth.RoleAdmin)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("allows any of several roles", func(t *testing.T) {
		rr := request(t, newHandler(auth.RoleAdmin, auth.RoleCompany), auth.RoleCompany)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("forbids everyone else", func(t *testing.T) {
		rr := request(t, newHandler(auth.RoleAdmin), auth.RoleEmployee)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
