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

type ConsultationHandler struct {
	db *gorm.DB
}

func NewConsultationHandler(db *gorm.DB) *ConsultationHandler {
	return &ConsultationHandler{db: db}
}

type CreateConsultationRequest struct {
	PatientName      string `json:"patient_name,omitempty"`
	Age              *int   `json:"age,omitempty"`
	Sex              string `json:"sex,omitempty"`
	ConsultationDate string `json:"consultation_date,omitempty"` // YYYY-MM-DD
	ConsultationTime string `json:"consultation_time,omitempty"` // HH:MM:SS
	DurationMinutes  *int   `json:"duration_minutes,omitempty"`
	Type             string `json:"type,omitempty"`
	Status           string `json:"status,omitempty"`
	Reason           string `json:"reason,omitempty"`
	DoctorNotes      string `json:"doctor_notes,omitempty"`
	CompanyID        string `json:"company_id,omitempty"` // admins only
	PartnerID        string `json:"partner_id,omitempty"` // admins only
}

func (r CreateConsultationRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Age != nil && (*r.Age < 0 || *r.Age > 150) {
		errors["age"] = "Age must be between 0 and 150"
	}
	if r.ConsultationDate != "" {
		if _, err := time.Parse("2006-01-02", r.ConsultationDate); err != nil {
			errors["consultation_date"] = "Date must be YYYY-MM-DD"
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

// List handles GET /api/v1/consultations. Companies and partners see
// their own events, admins see all.
func (h *ConsultationHandler) List(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.Consultation{})

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
	if cType := r.URL.Query().Get("type"); cType != "" {
		query = query.Where("type = ?", cType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count consultations"})
		return
	}

	var consultations []models.Consultation
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&consultations).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list consultations"})
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       consultations,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/consultations. Ownership follows the
// caller: companies and partners record against themselves, admins may
// record on behalf of either. Request origin is captured on the row.
func (h *ConsultationHandler) Create(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())

	var req CreateConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	consultation := models.Consultation{
		ConsultationCode: generateCode("CONS"),
		PatientName:      req.PatientName,
		Age:              req.Age,
		Sex:              req.Sex,
		ConsultationTime: req.ConsultationTime,
		DurationMinutes:  req.DurationMinutes,
		Reason:           req.Reason,
		DoctorNotes:      req.DoctorNotes,
		IPAddress:        middleware.ClientIP(r),
		UserAgent:        r.UserAgent(),
	}
	if req.Type != "" {
		consultation.Type = req.Type
	}
	if req.Status != "" {
		consultation.Status = req.Status
	}
	if req.ConsultationDate != "" {
		d, _ := time.Parse("2006-01-02", req.ConsultationDate)
		consultation.ConsultationDate = &d
	}

	callerID := middleware.GetAccountID(r.Context())
	switch role {
	case auth.RoleCompany:
		consultation.CompanyID = &callerID
	case auth.RolePartner:
		consultation.PartnerID = &callerID
	case auth.RoleAdmin:
		if req.CompanyID != "" {
			id, _ := uuid.Parse(req.CompanyID)
			consultation.CompanyID = &id
		}
		if req.PartnerID != "" {
			id, _ := uuid.Parse(req.PartnerID)
			consultation.PartnerID = &id
		}
	default:
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	if err := h.db.Create(&consultation).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create consultation"})
		return
	}

	writeJSON(w, http.StatusCreated, consultation)
}
