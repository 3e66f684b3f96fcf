package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/cira/cira-backend/internal/mailer"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidRole        = errors.New("invalid role")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp has expired")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

const (
	otpTTL        = 10 * time.Minute
	resetTokenTTL = 15 * time.Minute
)

type Service struct {
	db          *gorm.DB
	jwt         *JWTService
	mail        mailer.Mailer
	logger      *slog.Logger
	frontendURL string
}

func NewService(db *gorm.DB, jwt *JWTService, mail mailer.Mailer, logger *slog.Logger, frontendURL string) *Service {
	return &Service{
		db:          db,
		jwt:         jwt,
		mail:        mail,
		logger:      logger,
		frontendURL: frontendURL,
	}
}

type RegisterInput struct {
	Role       Role
	Email      string
	Password   string
	Name       string // company_name / partner_name / employee_name
	PersonName string
	FirstName  string
	LastName   string
	Phone      string
	CompanyID  uuid.UUID // employees only
}

// OTPChallenge is what a successful password check yields. Never a
// session: the caller must come back with the emailed code.
type OTPChallenge struct {
	Role        Role   `json:"role"`
	Email       string `json:"email"`
	OTPRequired bool   `json:"otpRequired"`
}

type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      map[string]any `json:"user"`
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (uuid.UUID, error) {
	cfg, ok := roleRegistry[input.Role]
	if !ok {
		return uuid.Nil, ErrInvalidRole
	}

	email := NormalizeEmail(input.Email)
	existing, err := s.findByEmail(ctx, cfg, email)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		return uuid.Nil, ErrEmailTaken
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return uuid.Nil, err
	}

	input.Email = email
	acct := cfg.build(input, hash)
	if err := s.db.WithContext(ctx).Create(acct).Error; err != nil {
		return uuid.Nil, fmt.Errorf("creating %s account: %w", cfg.role, err)
	}

	return acct.AccountID(), nil
}

// Login verifies the password and, on success, issues a fresh OTP
// challenge. A pending OTP from an earlier attempt is overwritten.
func (s *Service) Login(ctx context.Context, role Role, email, password string) (*OTPChallenge, error) {
	cfg, ok := roleRegistry[role]
	if !ok {
		return nil, ErrInvalidRole
	}

	norm := NormalizeEmail(email)
	acct, err := s.findByEmail(ctx, cfg, norm)
	if err != nil {
		return nil, err
	}
	// Unknown account and wrong password are indistinguishable.
	if acct == nil || !CheckPassword(password, acct.Creds().PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	otp, err := GenerateOTP()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(otpTTL)

	if err := s.db.WithContext(ctx).Model(acct).Updates(map[string]any{
		"otp":            otp,
		"otp_expires_at": expiresAt,
	}).Error; err != nil {
		return nil, fmt.Errorf("storing otp: %w", err)
	}

	if err := s.mail.SendOTPEmail(ctx, acct.Creds().Email, otp); err != nil {
		s.logger.Error("otp email dispatch failed", "role", role, "error", err)
		return nil, err
	}

	return &OTPChallenge{
		Role:        role,
		Email:       acct.Creds().Email,
		OTPRequired: true,
	}, nil
}

// VerifyOTP consumes a pending challenge and issues the session. The
// signed token is also persisted on the row, so at most one session
// token per account is tracked server-side.
func (s *Service) VerifyOTP(ctx context.Context, role Role, email, otp string) (*Session, error) {
	cfg, ok := roleRegistry[role]
	if !ok {
		return nil, ErrInvalidRole
	}

	acct, err := s.findByEmail(ctx, cfg, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}

	creds := acct.Creds()
	if creds.OTP == nil || *creds.OTP != otp {
		return nil, ErrInvalidOTP
	}
	if creds.OTPExpiresAt == nil || creds.OTPExpiresAt.Before(time.Now()) {
		return nil, ErrOTPExpired
	}

	token, err := s.jwt.GenerateToken(acct.AccountID(), role, creds.Email)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(s.jwt.Expiry())

	if err := s.db.WithContext(ctx).Model(acct).Updates(map[string]any{
		"otp":              nil,
		"otp_expires_at":   nil,
		"token":            token,
		"token_expires_at": expiresAt,
		"last_login_at":    now,
	}).Error; err != nil {
		return nil, fmt.Errorf("finalizing login: %w", err)
	}

	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      acct.Profile(),
	}, nil
}

// ForgotPassword issues a reset credential if the account exists and
// reports nothing either way. The raw token leaves the process only
// inside the emailed link; the row stores its digest.
func (s *Service) ForgotPassword(ctx context.Context, role Role, email string) error {
	cfg, ok := roleRegistry[role]
	if !ok {
		return ErrInvalidRole
	}

	norm := NormalizeEmail(email)
	acct, err := s.findByEmail(ctx, cfg, norm)
	if err != nil {
		return err
	}
	if acct == nil {
		return nil
	}

	raw, digest, err := NewResetToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(resetTokenTTL)

	if err := s.db.WithContext(ctx).Model(acct).Updates(map[string]any{
		"token":            digest,
		"token_expires_at": expiresAt,
	}).Error; err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	link := fmt.Sprintf("%s/auth/reset-password?role=%s&token=%s&email=%s",
		s.frontendURL,
		url.QueryEscape(string(role)),
		url.QueryEscape(raw),
		url.QueryEscape(acct.Creds().Email),
	)

	if err := s.mail.SendResetEmail(ctx, acct.Creds().Email, link); err != nil {
		s.logger.Error("reset email dispatch failed", "role", role, "error", err)
		return err
	}

	return nil
}

// ResetPassword consumes a reset credential. Every failure mode maps to
// the same error so callers cannot probe which check tripped.
func (s *Service) ResetPassword(ctx context.Context, role Role, email, rawToken, newPassword string) error {
	cfg, ok := roleRegistry[role]
	if !ok {
		return ErrInvalidRole
	}

	acct, err := s.findByEmail(ctx, cfg, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrInvalidResetToken
	}

	creds := acct.Creds()
	if creds.Token == nil || creds.TokenExpiresAt == nil {
		return ErrInvalidResetToken
	}
	if creds.TokenExpiresAt.Before(time.Now()) {
		return ErrInvalidResetToken
	}

	digest := HashResetToken(rawToken)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(*creds.Token)) != 1 {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	// Single-use: the new hash lands and the credential clears in one
	// update.
	if err := s.db.WithContext(ctx).Model(acct).Updates(map[string]any{
		"password_hash":    hash,
		"token":            nil,
		"token_expires_at": nil,
	}).Error; err != nil {
		return fmt.Errorf("resetting password: %w", err)
	}

	return nil
}

// GetAccount loads a role-shaped account by primary key.
func (s *Service) GetAccount(ctx context.Context, role Role, id uuid.UUID) (Account, error) {
	cfg, ok := roleRegistry[role]
	if !ok {
		return nil, ErrInvalidRole
	}

	acct := cfg.newAccount()
	if err := s.db.WithContext(ctx).First(acct, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

func (s *Service) findByEmail(ctx context.Context, cfg roleConfig, email string) (Account, error) {
	acct := cfg.newAccount()
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s account: %w", cfg.role, err)
	}
	return acct, nil
}
