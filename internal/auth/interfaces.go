package auth

import (
	"context"

	"github.com/google/uuid"
)

// Authenticator defines the account authentication lifecycle.
type Authenticator interface {
	Register(ctx context.Context, input RegisterInput) (uuid.UUID, error)
	Login(ctx context.Context, role Role, email, password string) (*OTPChallenge, error)
	VerifyOTP(ctx context.Context, role Role, email, otp string) (*Session, error)
	ForgotPassword(ctx context.Context, role Role, email string) error
	ResetPassword(ctx context.Context, role Role, email, token, newPassword string) error
	GetAccount(ctx context.Context, role Role, id uuid.UUID) (Account, error)
}

// TokenService defines the session token operations.
type TokenService interface {
	GenerateToken(accountID uuid.UUID, role Role, email string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Compile-time interface satisfaction checks
var (
	_ Authenticator = (*Service)(nil)
	_ TokenService  = (*JWTService)(nil)
)
