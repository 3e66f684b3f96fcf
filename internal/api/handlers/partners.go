package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cira/cira-backend/internal/api/dto"
	"github.com/cira/cira-backend/internal/api/middleware"
	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/database/models"
	"github.com/cira/cira-backend/internal/storage"
	"gorm.io/gorm"
)

type PartnerHandler struct {
	db    *gorm.DB
	store *storage.Store
}

func NewPartnerHandler(db *gorm.DB, store *storage.Store) *PartnerHandler {
	return &PartnerHandler{db: db, store: store}
}

type CreatePartnerRequest struct {
	PartnerName    string `json:"partner_name"`
	PersonName     string `json:"person_name,omitempty"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Phone          string `json:"phone,omitempty"`
	Image          string `json:"image,omitempty"`
	BrandingConfig string `json:"branding_config,omitempty"`
}

func (r CreatePartnerRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.PartnerName == "" {
		errors["partner_name"] = "Partner name is required"
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}
	if r.BrandingConfig != "" && !json.Valid([]byte(r.BrandingConfig)) {
		errors["branding_config"] = "Branding config must be valid JSON"
	}
	return errors
}

type UpdatePartnerRequest struct {
	PartnerName    *string `json:"partner_name,omitempty"`
	PersonName     *string `json:"person_name,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Image          *string `json:"image,omitempty"`
	BrandingConfig *string `json:"branding_config,omitempty"`
	Status         *string `json:"status,omitempty"`
}

type PartnerResponse struct {
	ID             string `json:"id"`
	PartnerName    string `json:"partner_name"`
	PersonName     string `json:"person_name,omitempty"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	BrandingConfig string `json:"branding_config,omitempty"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

func partnerToResponse(p *models.Partner) PartnerResponse {
	return PartnerResponse{
		ID:             p.ID.String(),
		PartnerName:    p.PartnerName,
		PersonName:     p.PersonName,
		Email:          p.Email,
		Phone:          p.Phone,
		ImageURL:       p.ImageURL,
		BrandingConfig: p.BrandingConfig,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
}

// List handles GET /api/v1/partners. Admins see every partner; a
// partner account sees only its own row.
func (h *PartnerHandler) List(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.Partner{})

	switch role {
	case auth.RoleAdmin:
	case auth.RolePartner:
		query = query.Where("id = ?", middleware.GetAccountID(r.Context()))
	default:
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("LOWER(partner_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count partners"})
		return
	}

	var partners []models.Partner
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&partners).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list partners"})
		return
	}

	response := make([]PartnerResponse, len(partners))
	for i, p := range partners {
		response[i] = partnerToResponse(&p)
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       response,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/partners
func (h *PartnerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePartnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	email := auth.NormalizeEmail(req.Email)
	var existing int64
	if err := h.db.Model(&models.Partner{}).Where("LOWER(email) = ?", email).Count(&existing).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create partner"})
		return
	}
	if existing > 0 {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create partner"})
		return
	}

	partner := models.Partner{
		Credentials:    models.Credentials{Email: email, PasswordHash: hash},
		PartnerName:    req.PartnerName,
		PersonName:     req.PersonName,
		Phone:          req.Phone,
		BrandingConfig: req.BrandingConfig,
		CreatedBy:      middleware.GetAccountID(r.Context()),
	}

	imageURL, err := h.resolveImage(req.Image)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	partner.ImageURL = imageURL

	if err := h.db.Create(&partner).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create partner"})
		return
	}

	writeJSON(w, http.StatusCreated, partnerToResponse(&partner))
}

// Get handles GET /api/v1/partners/:id
func (h *PartnerHandler) Get(w http.ResponseWriter, r *http.Request) {
	partnerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid partner ID"})
		return
	}

	role := middleware.GetRole(r.Context())
	if role == auth.RolePartner && partnerID != middleware.GetAccountID(r.Context()) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	var partner models.Partner
	if err := h.db.First(&partner, "id = ?", partnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Partner not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get partner"})
		return
	}

	writeJSON(w, http.StatusOK, partnerToResponse(&partner))
}

// Update handles PUT /api/v1/partners/:id
func (h *PartnerHandler) Update(w http.ResponseWriter, r *http.Request) {
	partnerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid partner ID"})
		return
	}

	var req UpdatePartnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	updates := map[string]any{}
	if req.PartnerName != nil {
		updates["partner_name"] = *req.PartnerName
	}
	if req.PersonName != nil {
		updates["person_name"] = *req.PersonName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.BrandingConfig != nil {
		if *req.BrandingConfig != "" && !json.Valid([]byte(*req.BrandingConfig)) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Branding config must be valid JSON"})
			return
		}
		updates["branding_config"] = *req.BrandingConfig
	}
	if req.Image != nil {
		imageURL, err := h.resolveImage(*req.Image)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		updates["image_url"] = imageURL
	}

	if len(updates) == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "No fields to update"})
		return
	}

	result := h.db.Model(&models.Partner{}).Where("id = ?", partnerID).Updates(updates)
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update partner"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Partner not found"})
		return
	}

	var partner models.Partner
	if err := h.db.First(&partner, "id = ?", partnerID).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update partner"})
		return
	}

	writeJSON(w, http.StatusOK, partnerToResponse(&partner))
}

// Delete handles DELETE /api/v1/partners/:id (soft delete)
func (h *PartnerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	partnerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid partner ID"})
		return
	}

	result := h.db.Delete(&models.Partner{}, "id = ?", partnerID)
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete partner"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Partner not found"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Partner deleted"})
}

func (h *PartnerHandler) resolveImage(image string) (string, error) {
	if image == "" {
		return "", nil
	}
	if storage.IsDataURI(image) {
		return h.store.SaveDataURI(image)
	}
	return image, nil
}
