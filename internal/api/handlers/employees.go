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

type EmployeeHandler struct {
	db    *gorm.DB
	store *storage.Store
}

func NewEmployeeHandler(db *gorm.DB, store *storage.Store) *EmployeeHandler {
	return &EmployeeHandler{db: db, store: store}
}

type CreateEmployeeRequest struct {
	EmployeeName string `json:"employee_name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CompanyID    string `json:"company_id,omitempty"` // admins only; companies use their own ID
	Image        string `json:"image,omitempty"`
}

func (r CreateEmployeeRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.EmployeeName == "" {
		errors["employee_name"] = "Employee name is required"
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}
	if r.CompanyID != "" {
		if _, err := uuid.Parse(r.CompanyID); err != nil {
			errors["company_id"] = "Invalid company ID format"
		}
	}
	return errors
}

type UpdateEmployeeRequest struct {
	EmployeeName *string `json:"employee_name,omitempty"`
	Image        *string `json:"image,omitempty"`
	Status       *string `json:"status,omitempty"`
}

type EmployeeResponse struct {
	ID           string `json:"id"`
	EmployeeName string `json:"employee_name"`
	Email        string `json:"email"`
	CompanyID    string `json:"company_id"`
	CompanyName  string `json:"company_name,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

func employeeToResponse(e *models.Employee) EmployeeResponse {
	resp := EmployeeResponse{
		ID:           e.ID.String(),
		EmployeeName: e.EmployeeName,
		Email:        e.Email,
		CompanyID:    e.CompanyID.String(),
		ImageURL:     e.ImageURL,
		Status:       e.Status,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
	if e.Company != nil {
		resp.CompanyName = e.Company.CompanyName
	}
	return resp
}

// List handles GET /api/v1/employees. Companies see their own staff,
// admins see everyone and may filter by company_id.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.Employee{}).Preload("Company")

	switch role {
	case auth.RoleAdmin:
		if companyID := r.URL.Query().Get("company_id"); companyID != "" {
			id, err := uuid.Parse(companyID)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company ID"})
				return
			}
			query = query.Where("company_id = ?", id)
		}
	case auth.RoleCompany:
		query = query.Where("company_id = ?", middleware.GetAccountID(r.Context()))
	default:
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("LOWER(employee_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count employees"})
		return
	}

	var employees []models.Employee
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&employees).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list employees"})
		return
	}

	response := make([]EmployeeResponse, len(employees))
	for i, e := range employees {
		response[i] = employeeToResponse(&e)
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       response,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/employees
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())

	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	var companyID uuid.UUID
	switch role {
	case auth.RoleCompany:
		companyID = middleware.GetAccountID(r.Context())
	case auth.RoleAdmin:
		if req.CompanyID == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Company ID is required"})
			return
		}
		companyID, _ = uuid.Parse(req.CompanyID)
	default:
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	var company models.Company
	if err := h.db.First(&company, "id = ?", companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Company not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create employee"})
		return
	}

	email := auth.NormalizeEmail(req.Email)
	var existing int64
	if err := h.db.Model(&models.Employee{}).Where("LOWER(email) = ?", email).Count(&existing).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create employee"})
		return
	}
	if existing > 0 {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create employee"})
		return
	}

	employee := models.Employee{
		Credentials:  models.Credentials{Email: email, PasswordHash: hash},
		EmployeeName: req.EmployeeName,
		CompanyID:    companyID,
	}

	imageURL, err := h.resolveImage(req.Image)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	employee.ImageURL = imageURL

	if err := h.db.Create(&employee).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create employee"})
		return
	}

	h.syncEmployeeCount(companyID)

	writeJSON(w, http.StatusCreated, employeeToResponse(&employee))
}

// Get handles GET /api/v1/employees/:id
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	employeeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid employee ID"})
		return
	}

	var employee models.Employee
	if err := h.db.Preload("Company").First(&employee, "id = ?", employeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Employee not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get employee"})
		return
	}

	if !h.canAccess(r, &employee) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	writeJSON(w, http.StatusOK, employeeToResponse(&employee))
}

// Update handles PUT /api/v1/employees/:id
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	employeeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid employee ID"})
		return
	}

	var employee models.Employee
	if err := h.db.First(&employee, "id = ?", employeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Employee not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update employee"})
		return
	}

	if !h.canManage(r, &employee) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	var req UpdateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	updates := map[string]any{}
	if req.EmployeeName != nil {
		updates["employee_name"] = *req.EmployeeName
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

	if err := h.db.Model(&employee).Updates(updates).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update employee"})
		return
	}

	writeJSON(w, http.StatusOK, employeeToResponse(&employee))
}

// Delete handles DELETE /api/v1/employees/:id (soft delete)
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	employeeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid employee ID"})
		return
	}

	var employee models.Employee
	if err := h.db.First(&employee, "id = ?", employeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Employee not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete employee"})
		return
	}

	if !h.canManage(r, &employee) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	if err := h.db.Delete(&employee).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete employee"})
		return
	}

	h.syncEmployeeCount(employee.CompanyID)

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Employee deleted"})
}

// canAccess covers reads: admins always, the owning company, and the
// employee looking at their own record.
func (h *EmployeeHandler) canAccess(r *http.Request, e *models.Employee) bool {
	role := middleware.GetRole(r.Context())
	callerID := middleware.GetAccountID(r.Context())

	switch role {
	case auth.RoleAdmin:
		return true
	case auth.RoleCompany:
		return e.CompanyID == callerID
	case auth.RoleEmployee:
		return e.ID == callerID
	}
	return false
}

// canManage covers writes: admins and the owning company only.
func (h *EmployeeHandler) canManage(r *http.Request, e *models.Employee) bool {
	role := middleware.GetRole(r.Context())

	switch role {
	case auth.RoleAdmin:
		return true
	case auth.RoleCompany:
		return e.CompanyID == middleware.GetAccountID(r.Context())
	}
	return false
}

// syncEmployeeCount recomputes the denormalized counter on the company
// row. Failures are ignored; the count is display-only.
func (h *EmployeeHandler) syncEmployeeCount(companyID uuid.UUID) {
	var count int64
	if err := h.db.Model(&models.Employee{}).Where("company_id = ?", companyID).Count(&count).Error; err != nil {
		return
	}
	h.db.Model(&models.Company{}).Where("id = ?", companyID).Update("employees_count", count)
}

func (h *EmployeeHandler) resolveImage(image string) (string, error) {
	if image == "" {
		return "", nil
	}
	if storage.IsDataURI(image) {
		return h.store.SaveDataURI(image)
	}
	return image, nil
}
