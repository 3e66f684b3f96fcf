package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateOTP returns a uniformly random 6-digit code, 100000-999999.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// NewResetToken returns a fresh reset credential: the raw hex token that
// goes into the emailed link, and the digest that is stored. Only the
// digest is ever persisted.
func NewResetToken() (raw, digest string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating reset token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

// HashResetToken maps a raw reset token to its stored form.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
