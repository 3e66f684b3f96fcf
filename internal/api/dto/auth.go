package dto

import "github.com/cira/cira-backend/internal/api/validation"

type SignupRequest struct {
	Role       string `json:"role"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name,omitempty"`
	PersonName string `json:"person_name,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	CompanyID  string `json:"company_id,omitempty"`
}

func (r SignupRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Role == "" {
		errors["role"] = "Role is required"
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Invalid email format"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 8 {
		errors["password"] = "Password must be at least 8 characters"
	}

	switch r.Role {
	case "admin":
		if r.FirstName == "" {
			errors["first_name"] = "First name is required"
		}
	case "company", "partner":
		if r.Name == "" {
			errors["name"] = "Name is required"
		}
	case "employee":
		if r.Name == "" {
			errors["name"] = "Name is required"
		}
		if r.CompanyID == "" {
			errors["company_id"] = "Company ID is required"
		} else if !validation.IsValidUUID(r.CompanyID) {
			errors["company_id"] = "Invalid company ID format"
		}
	}

	return errors
}

type LoginRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Role == "" {
		errors["role"] = "Role is required"
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type VerifyOTPRequest struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r VerifyOTPRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Role == "" {
		errors["role"] = "Role is required"
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.OTP == "" {
		errors["otp"] = "OTP is required"
	} else if len(r.OTP) != 6 {
		errors["otp"] = "OTP must be 6 digits"
	}

	return errors
}

type ForgotPasswordRequest struct {
	Role  string `json:"role"`
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Role == "" {
		errors["role"] = "Role is required"
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(r.Email) {
		errors["email"] = "Invalid email format"
	}

	return errors
}

type ResetPasswordRequest struct {
	Role            string `json:"role"`
	Email           string `json:"email"`
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r ResetPasswordRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Role == "" {
		errors["role"] = "Role is required"
	}
	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Token == "" {
		errors["token"] = "Token is required"
	}
	if r.NewPassword == "" {
		errors["new_password"] = "New password is required"
	} else if len(r.NewPassword) < 8 {
		errors["new_password"] = "Password must be at least 8 characters"
	}
	if r.ConfirmPassword != r.NewPassword {
		errors["confirm_password"] = "Passwords do not match"
	}

	return errors
}

type OTPChallengeResponse struct {
	Message     string `json:"message"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	OTPRequired bool   `json:"otpRequired"`
}

type SessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt int64          `json:"expires_at"`
	User      map[string]any `json:"user"`
}
