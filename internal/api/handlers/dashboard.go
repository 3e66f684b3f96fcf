package handlers

import (
	"errors"
	"net/http"

	"github.com/cira/cira-backend/internal/api/dto"
	"github.com/cira/cira-backend/internal/api/middleware"
	"github.com/cira/cira-backend/internal/dashboard"
)

type DashboardHandler struct {
	service *dashboard.Service
}

func NewDashboardHandler(service *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary handles GET /api/v1/dashboard
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())
	accountID := middleware.GetAccountID(r.Context())

	summary, err := h.service.Summary(r.Context(), role, accountID)
	if err != nil {
		switch {
		case errors.Is(err, dashboard.ErrUnsupportedRole):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Dashboard not available for this role"})
		case errors.Is(err, dashboard.ErrEntityNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to build dashboard"})
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
