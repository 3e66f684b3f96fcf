package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cira/cira-backend/internal/api/dto"
	"github.com/cira/cira-backend/internal/api/middleware"
	"github.com/cira/cira-backend/internal/auth"
	"github.com/google/uuid"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	role, ok := auth.ParseRole(req.Role)
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
		return
	}

	input := auth.RegisterInput{
		Role:       role,
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		PersonName: req.PersonName,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
	}
	if req.CompanyID != "" {
		companyID, err := uuid.Parse(req.CompanyID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid company ID"})
			return
		}
		input.CompanyID = companyID
	}

	id, err := h.authService.Register(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRole):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
		case errors.Is(err, auth.ErrEmailTaken):
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Email already registered"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Registration failed"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Account created successfully",
		"id":      id.String(),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	role, ok := auth.ParseRole(req.Role)
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
		return
	}

	challenge, err := h.authService.Login(r.Context(), role, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.OTPChallengeResponse{
		Message:     "OTP sent to your email",
		Role:        string(challenge.Role),
		Email:       challenge.Email,
		OTPRequired: challenge.OTPRequired,
	})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	role, ok := auth.ParseRole(req.Role)
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
		return
	}

	session, err := h.authService.VerifyOTP(r.Context(), role, req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
		case errors.Is(err, auth.ErrInvalidOTP):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid OTP"})
		case errors.Is(err, auth.ErrOTPExpired):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "OTP has expired"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "OTP verification failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Unix(),
		User:      session.User,
	})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	role, ok := auth.ParseRole(req.Role)
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
		return
	}

	// The acknowledgement is identical whether or not the account
	// exists, so the endpoint cannot be used to probe for emails.
	if err := h.authService.ForgotPassword(r.Context(), role, req.Email); err != nil && !errors.Is(err, auth.ErrInvalidRole) {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Password reset request failed"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "If the email exists, a reset link has been sent"})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	role, ok := auth.ParseRole(req.Role)
	if !ok {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role"})
		return
	}

	if err := h.authService.ResetPassword(r.Context(), role, req.Email, req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidResetToken):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid or expired reset token"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Password reset failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Password has been reset"})
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	role := middleware.GetRole(r.Context())
	accountID := middleware.GetAccountID(r.Context())

	acct, err := h.authService.GetAccount(r.Context(), role, accountID)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountNotFound), errors.Is(err, auth.ErrInvalidRole):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Account not found"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load account"})
		}
		return
	}

	writeJSON(w, http.StatusOK, acct.Profile())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
