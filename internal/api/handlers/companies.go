package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
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

type CompanyHandler struct {
	db    *gorm.DB
	store *storage.Store
}

func NewCompanyHandler(db *gorm.DB, store *storage.Store) *CompanyHandler {
	return &CompanyHandler{db: db, store: store}
}

type CreateCompanyRequest struct {
	CompanyName string `json:"company_name"`
	PersonName  string `json:"person_name,omitempty"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone,omitempty"`
	Image       string `json:"image,omitempty"` // URL or base64 data URI
}

func (r CreateCompanyRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.CompanyName == "" {
		errors["company_name"] = "Company name is required"
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}
	return errors
}

type UpdateCompanyRequest struct {
	CompanyName *string `json:"company_name,omitempty"`
	PersonName  *string `json:"person_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Image       *string `json:"image,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type CompanyResponse struct {
	ID             string `json:"id"`
	CompanyName    string `json:"company_name"`
	PersonName     string `json:"person_name,omitempty"`
	Email          string `json:"email"`
	Code           string `json:"code,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	EmployeesCount int    `json:"employees_count"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

func companyToResponse(c *models.Company) CompanyResponse {
	return CompanyResponse{
		ID:             c.ID.String(),
		CompanyName:    c.CompanyName,
		PersonName:     c.PersonName,
		Email:          c.Email,
		Code:           c.Code,
		Phone:          c.Phone,
		ImageURL:       c.ImageURL,
		EmployeesCount: c.EmployeesCount,
		Status:         c.Status,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
}

// List handles GET /api/v1/companies. Admins see every company; a
// company account sees only its own row.
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.Company{})

	switch role {
	case auth.RoleAdmin:
		// no scoping
	case auth.RoleCompany:
		query = query.Where("id = ?", middleware.GetAccountID(r.Context()))
	default:
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("LOWER(company_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count companies"})
		return
	}

	var companies []models.Company
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&companies).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list companies"})
		return
	}

	response := make([]CompanyResponse, len(companies))
	for i, c := range companies {
		response[i] = companyToResponse(&c)
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       response,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/companies
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
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
	if err := h.db.Model(&models.Company{}).Where("LOWER(email) = ?", email).Count(&existing).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create company"})
		return
	}
	if existing > 0 {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create company"})
		return
	}

	company := models.Company{
		Credentials: models.Credentials{Email: email, PasswordHash: hash},
		CompanyName: req.CompanyName,
		PersonName:  req.PersonName,
		Code:        generateCode("COMP"),
		Phone:       req.Phone,
		CreatedBy:   middleware.GetAccountID(r.Context()),
	}

	imageURL, err := h.resolveImage(req.Image)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	company.ImageURL = imageURL

	if err := h.db.Create(&company).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create company"})
		return
	}

	writeJSON(w, http.StatusCreated, companyToResponse(&company))
}

// Get handles GET /api/v1/companies/:id
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company ID"})
		return
	}

	role := middleware.GetRole(r.Context())
	if role == auth.RoleCompany && companyID != middleware.GetAccountID(r.Context()) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	var company models.Company
	if err := h.db.First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Company not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get company"})
		return
	}

	writeJSON(w, http.StatusOK, companyToResponse(&company))
}

// Update handles PUT /api/v1/companies/:id
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company ID"})
		return
	}

	var req UpdateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	updates := map[string]any{}
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
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

	result := h.db.Model(&models.Company{}).Where("id = ?", companyID).Updates(updates)
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update company"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Company not found"})
		return
	}

	var company models.Company
	if err := h.db.First(&company, "id = ?", companyID).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update company"})
		return
	}

	writeJSON(w, http.StatusOK, companyToResponse(&company))
}

// Delete handles DELETE /api/v1/companies/:id (soft delete)
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company ID"})
		return
	}

	result := h.db.Delete(&models.Company{}, "id = ?", companyID)
	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete company"})
		return
	}
	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Company not found"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Company deleted"})
}

// resolveImage stores base64 data URIs and passes plain URLs through.
func (h *CompanyHandler) resolveImage(image string) (string, error) {
	if image == "" {
		return "", nil
	}
	if storage.IsDataURI(image) {
		url, err := h.store.SaveDataURI(image)
		if err != nil {
			return "", fmt.Errorf("invalid image: %w", err)
		}
		return url, nil
	}
	return image, nil
}

func totalPages(total int64, perPage int) int {
	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	return pages
}

// generateCode produces a short display code like COMP-9F3A21.
func generateCode(prefix string) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(hex.EncodeToString(buf)))
}
