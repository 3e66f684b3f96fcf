package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cira/cira-backend/internal/api/dto"
	"github.com/cira/cira-backend/internal/api/middleware"
	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/database/models"
	"gorm.io/gorm"
)

type ReferralHandler struct {
	db *gorm.DB
}

func NewReferralHandler(db *gorm.DB) *ReferralHandler {
	return &ReferralHandler{db: db}
}

type CreateReferralRequest struct {
	ReferredToDoctorName string `json:"referred_to_doctor_name"`
	Platform             string `json:"platform,omitempty"`
	Country              string `json:"country,omitempty"`
	ReferralDate         string `json:"referral_date,omitempty"` // YYYY-MM-DD
	ReferralTime         string `json:"referral_time,omitempty"`
	Type                 string `json:"type,omitempty"`
	Status               string `json:"status,omitempty"`
	Reason               string `json:"reason,omitempty"`
	DoctorNotes          string `json:"doctor_notes,omitempty"`
	CompanyID            string `json:"company_id,omitempty"` // admins only
	PartnerID            string `json:"partner_id,omitempty"` // admins only
}

func (r CreateReferralRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.ReferredToDoctorName == "" {
		errors["referred_to_doctor_name"] = "Doctor name is required"
	}
	if r.ReferralDate != "" {
		if _, err := time.Parse("2006-01-02", r.ReferralDate); err != nil {
			errors["referral_date"] = "Date must be YYYY-MM-DD"
		}
	}
	if r.CompanyID != "" {
		if _, err := uuid.Parse(r.CompanyID); err != nil {
			errors["company_id"] = "Invalid company ID format"
		}
	}
	if r.PartnerID != "" {
		if _, err := uuid.Parse(r.PartnerID); err != nil {
			errors["partner_id"] = "Invalid partner ID format"
		}
	}
	return errors
}

// List handles GET /api/v1/doctor-referrals
func (h *ReferralHandler) List(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.DoctorReferral{})

	switch role {
	case auth.RoleAdmin:
	case auth.RoleCompany:
		query = query.Where("company_id = ?", middleware.GetAccountID(r.Context()))
	case auth.RolePartner:
		query = query.Where("partner_id = ?", middleware.GetAccountID(r.Context()))
	default:
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if platform := r.URL.Query().Get("platform"); platform != "" {
		query = query.Where("platform = ?", platform)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count referrals"})
		return
	}

	var referrals []models.DoctorReferral
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&referrals).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list referrals"})
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       referrals,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/doctor-referrals
func (h *ReferralHandler) Create(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())

	var req CreateReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	referral := models.DoctorReferral{
		ReferralCode:         generateCode("REF"),
		ReferredToDoctorName: req.ReferredToDoctorName,
		Country:              req.Country,
		ReferralTime:         req.ReferralTime,
		Reason:               req.Reason,
		DoctorNotes:          req.DoctorNotes,
	}
	if req.Platform != "" {
		referral.Platform = req.Platform
	}
	if req.Type != "" {
		referral.Type = req.Type
	}
	if req.Status != "" {
		referral.Status = req.Status
	}
	if req.ReferralDate != "" {
		d, _ := time.Parse("2006-01-02", req.ReferralDate)
		referral.ReferralDate = &d
	}

	callerID := middleware.GetAccountID(r.Context())
	switch role {
	case auth.RoleCompany:
		referral.CompanyID = &callerID
	case auth.RolePartner:
		referral.PartnerID = &callerID
	case auth.RoleAdmin:
		if req.CompanyID != "" {
			id, _ := uuid.Parse(req.CompanyID)
			referral.CompanyID = &id
		}
		if req.PartnerID != "" {
			id, _ := uuid.Parse(req.PartnerID)
			referral.PartnerID = &id
		}
	default:
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	if err := h.db.Create(&referral).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create referral"})
		return
	}

	writeJSON(w, http.StatusCreated, referral)
}
