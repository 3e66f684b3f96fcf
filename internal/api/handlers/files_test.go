package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/testutil"
)

func uploadRequest(t *testing.T, path string, body []byte, contentType, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestFileUpload(t *testing.T) {
	s := newTestRouter(t)

	admin := testutil.CreateTestAdmin(t, s.DB)
	token := testutil.GenerateTestToken(t, s.JWT, admin.ID, auth.RoleAdmin, admin.Email)

	t.Run("stores a png and serves it back", func(t *testing.T) {
		payload := []byte("fake png bytes")
		rr := s.do(uploadRequest(t, "/api/v1/cira-cloud/upload/photo.png", payload, "image/png", token))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp map[string]string
		testutil.ParseJSONResponse(t, rr, &resp)
		require.NotEmpty(t, resp["url"])
		assert.True(t, strings.HasSuffix(resp["url"], ".png"))

		u, err := url.Parse(resp["url"])
		require.NoError(t, err)

		get := s.do(httptest.NewRequest(http.MethodGet, u.Path, nil))
		assert.Equal(t, http.StatusOK, get.Code)
		assert.Equal(t, payload, get.Body.Bytes())
	})

	t.Run("extension sniffing falls back to the path segment", func(t *testing.T) {
		rr := s.do(uploadRequest(t, "/api/v1/cira-cloud/upload/report.pdf", []byte("%PDF-1.4"), "", token))
		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp map[string]string
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.True(t, strings.HasSuffix(resp["url"], ".pdf"))
	})

	t.Run("rejects disallowed types", func(t *testing.T) {
		rr := s.do(uploadRequest(t, "/api/v1/cira-cloud/upload/anim.gif", []byte("GIF89a"), "image/gif", token))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("rejects empty uploads", func(t *testing.T) {
		rr := s.do(uploadRequest(t, "/api/v1/cira-cloud/upload/photo.png", nil, "image/png", token))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("requires authentication", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/cira-cloud/upload/photo.png", bytes.NewReader([]byte("x")))
		req.Header.Set("Content-Type", "image/png")
		rr := s.do(req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestDashboardEndpoint(t *testing.T) {
	s := newTestRouter(t)

	company := testutil.CreateTestCompany(t, s.DB)
	token := testutil.GenerateTestToken(t, s.JWT, company.ID, auth.RoleCompany, company.Email)

	rr := s.do(testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/dashboard", nil, token))
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp struct {
		Cards map[string]int64 `json:"cards"`
		Chart struct {
			Type     string `json:"type"`
			XAxisKey string `json:"xAxisKey"`
			Points   []struct {
				Month string `json:"month"`
			} `json:"points"`
		} `json:"chart"`
	}
	testutil.ParseJSONResponse(t, rr, &resp)

	assert.Equal(t, "2d_line", resp.Chart.Type)
	assert.Equal(t, "month", resp.Chart.XAxisKey)
	assert.Len(t, resp.Chart.Points, 12)
	assert.Contains(t, resp.Cards, "totalEmployees")

	t.Run("employees have no dashboard", func(t *testing.T) {
		employee := testutil.CreateTestEmployee(t, s.DB, company)
		empToken := testutil.GenerateTestToken(t, s.JWT, employee.ID, auth.RoleEmployee, employee.Email)

		rr := s.do(testutil.AuthenticatedRequest(t, http.MethodGet, "/api/v1/dashboard", nil, empToken))
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}
