package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cira/cira-backend/internal/api"
	"github.com/cira/cira-backend/internal/api/dto"
	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/storage"
	"github.com/cira/cira-backend/internal/testutil"
)

type routerSetup struct {
	Router *api.Router
	DB     *gorm.DB
	JWT    *auth.JWTService
	Mail   *testutil.RecordingMailer
	Store  *storage.Store
}

func newTestRouter(t *testing.T) *routerSetup {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	jwtService := testutil.CreateTestJWTService()
	mail := &testutil.RecordingMailer{}
	logger := testutil.TestLogger()
	authService := auth.NewService(db, jwtService, mail, logger, "http://localhost:5173")

	store, err := storage.New(t.TempDir(), "http://localhost:5000")
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		DB:          db,
		Logger:      logger,
		JWTService:  jwtService,
		AuthService: authService,
		Store:       store,
	})

	return &routerSetup{Router: router, DB: db, JWT: jwtService, Mail: mail, Store: store}
}

func (s *routerSetup) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func TestAuthFlow(t *testing.T) {
	s := newTestRouter(t)

	signup := map[string]string{
		"role":        "company",
		"email":       "flow@example.com",
		"password":    "password123",
		"name":        "Flow Health",
		"person_name": "Flo Flowers",
	}

	t.Run("signup", func(t *testing.T) {
		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/signup", signup))
		testutil.AssertStatus(t, rr, http.StatusCreated)
	})

	t.Run("duplicate signup conflicts", func(t *testing.T) {
		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/signup", signup))
		testutil.AssertStatus(t, rr, http.StatusConflict)
	})

	t.Run("login issues an OTP challenge, not a session", func(t *testing.T) {
		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"role":     "company",
			"email":    "flow@example.com",
			"password": "password123",
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.OTPChallengeResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.True(t, resp.OTPRequired)
		assert.Equal(t, "company", resp.Role)
		assert.NotContains(t, rr.Body.String(), `"token"`)
	})

	var sessionToken string

	t.Run("verify-otp issues the session", func(t *testing.T) {
		otp := s.Mail.LastOTP(t).OTP

		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/verify-otp", map[string]string{
			"role":  "company",
			"email": "flow@example.com",
			"otp":   otp,
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.SessionResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "company", resp.User["role"])
		sessionToken = resp.Token

		// Replay is rejected.
		rr = s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/verify-otp", map[string]string{
			"role":  "company",
			"email": "flow@example.com",
			"otp":   otp,
		}))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("me returns the profile", func(t *testing.T) {
		rr := s.do(testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/me", nil, sessionToken))
		testutil.AssertStatus(t, rr, http.StatusOK)

		var profile map[string]any
		testutil.ParseJSONResponse(t, rr, &profile)
		assert.Equal(t, "flow@example.com", profile["email"])
		assert.Equal(t, "company", profile["role"])
	})

	t.Run("protected routes reject missing tokens", func(t *testing.T) {
		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodGet, "/api/v1/dashboard", nil))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestLoginFailures(t *testing.T) {
	s := newTestRouter(t)
	company := testutil.CreateTestCompany(t, s.DB)

	t.Run("wrong password", func(t *testing.T) {
		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"role":     "company",
			"email":    company.Email,
			"password": "wrong-password",
		}))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("unknown email gets the same response", func(t *testing.T) {
		known := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"role":     "company",
			"email":    company.Email,
			"password": "wrong-password",
		}))
		unknown := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"role":     "company",
			"email":    "nobody@example.com",
			"password": "wrong-password",
		}))
		assert.Equal(t, known.Code, unknown.Code)
		assert.Equal(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"role": "company",
		}))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "email")
		assert.Contains(t, resp.Details, "password")
	})

	t.Run("bad role", func(t *testing.T) {
		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"role":     "doctor",
			"email":    company.Email,
			"password": testutil.TestPassword,
		}))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestRouter(t)
	admin := testutil.CreateTestAdmin(t, s.DB)

	t.Run("ack is identical for known and unknown emails", func(t *testing.T) {
		known := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{
			"role":  "admin",
			"email": admin.Email,
		}))
		unknown := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{
			"role":  "admin",
			"email": "nobody@example.com",
		}))

		assert.Equal(t, http.StatusOK, known.Code)
		assert.Equal(t, known.Code, unknown.Code)
		assert.Equal(t, known.Body.String(), unknown.Body.String())
	})

	t.Run("mismatched confirmation fails validation", func(t *testing.T) {
		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/reset-password", map[string]string{
			"role":             "admin",
			"email":            admin.Email,
			"token":            "whatever",
			"new_password":     "new-password-1",
			"confirm_password": "different",
		}))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "confirm_password")
	})

	t.Run("full reset round trip", func(t *testing.T) {
		reset := s.Mail.LastReset(t)
		req := testutil.UnauthenticatedRequest(t, http.MethodGet, reset.Link, nil)
		raw := req.URL.Query().Get("token")
		require.NotEmpty(t, raw)

		rr := s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/reset-password", map[string]string{
			"role":             "admin",
			"email":            admin.Email,
			"token":            raw,
			"new_password":     "brand-new-pass1",
			"confirm_password": "brand-new-pass1",
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)

		// New password logs in.
		rr = s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"role":     "admin",
			"email":    admin.Email,
			"password": "brand-new-pass1",
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)

		// Token is spent.
		rr = s.do(testutil.UnauthenticatedRequest(t, http.MethodPost, "/api/v1/auth/reset-password", map[string]string{
			"role":             "admin",
			"email":            admin.Email,
			"token":            raw,
			"new_password":     "brand-new-pass2",
			"confirm_password": "brand-new-pass2",
		}))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}
