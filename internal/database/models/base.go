package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with UUID primary key and timestamps
type Base struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Credentials holds the login lifecycle columns shared by every role
// table: password hash, pending OTP challenge, and the token slot used
// for both session tokens and password-reset digests. Either both halves
// of a pair (value + expiry) are set, or neither is.
type Credentials struct {
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string     `gorm:"not null" json:"-"`
	OTP            *string    `json:"-"`
	OTPExpiresAt   *time.Time `json:"-"`
	Token          *string    `json:"-"`
	TokenExpiresAt *time.Time `json:"-"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}
