package auth_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/database/models"
	"github.com/cira/cira-backend/internal/testutil"
)

func newTestService(t *testing.T) (*auth.Service, *gorm.DB, *testutil.RecordingMailer) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	mail := &testutil.RecordingMailer{}
	svc := auth.NewService(db, testutil.CreateTestJWTService(), mail, testutil.TestLogger(), "http://localhost:5173")
	return svc, db, mail
}

func TestService_Register(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := testutil.TestContext(t)

	t.Run("registers a company account", func(t *testing.T) {
		id, err := svc.Register(ctx, auth.RegisterInput{
			Role:     auth.RoleCompany,
			Email:    "acme@example.com",
			Password: "password123",
			Name:     "Acme Health",
		})
		require.NoError(t, err)

		var company models.Company
		require.NoError(t, db.First(&company, "id = ?", id).Error)
		assert.Equal(t, "acme@example.com", company.Email)
		assert.Equal(t, "Acme Health", company.CompanyName)
		assert.NotEqual(t, "password123", company.PasswordHash)
	})

	t.Run("rejects duplicate email within a role", func(t *testing.T) {
		_, err := svc.Register(ctx, auth.RegisterInput{
			Role:     auth.RoleCompany,
			Email:    "acme@example.com",
			Password: "password123",
			Name:     "Acme Clone",
		})
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("same email is allowed on a different role table", func(t *testing.T) {
		_, err := svc.Register(ctx, auth.RegisterInput{
			Role:     auth.RolePartner,
			Email:    "acme@example.com",
			Password: "password123",
			Name:     "Acme Referrals",
		})
		assert.NoError(t, err)
	})

	t.Run("normalizes email case", func(t *testing.T) {
		_, err := svc.Register(ctx, auth.RegisterInput{
			Role:     auth.RoleCompany,
			Email:    "  ACME@Example.COM ",
			Password: "password123",
			Name:     "Acme Shouting",
		})
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := svc.Register(ctx, auth.RegisterInput{
			Role:     auth.Role("doctor"),
			Email:    "doc@example.com",
			Password: "password123",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidRole)
	})
}

func TestService_Login(t *testing.T) {
	svc, db, mail := newTestService(t)
	ctx := testutil.TestContext(t)
	company := testutil.CreateTestCompany(t, db)

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, err1 := svc.Login(ctx, auth.RoleCompany, "nobody@example.com", testutil.TestPassword)
		_, err2 := svc.Login(ctx, auth.RoleCompany, company.Email, "wrong-password")
		assert.ErrorIs(t, err1, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, err2, auth.ErrInvalidCredentials)
		assert.Equal(t, err1, err2)
	})

	t.Run("success yields an OTP challenge, never a session", func(t *testing.T) {
		challenge, err := svc.Login(ctx, auth.RoleCompany, company.Email, testutil.TestPassword)
		require.NoError(t, err)
		assert.True(t, challenge.OTPRequired)
		assert.Equal(t, auth.RoleCompany, challenge.Role)
		assert.Equal(t, company.Email, challenge.Email)

		sent := mail.LastOTP(t)
		assert.Equal(t, company.Email, sent.To)
		assert.Len(t, sent.OTP, 6)
	})

	t.Run("each login supersedes the previous OTP", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.RoleCompany, company.Email, testutil.TestPassword)
		require.NoError(t, err)
		first := mail.LastOTP(t).OTP

		_, err = svc.Login(ctx, auth.RoleCompany, company.Email, testutil.TestPassword)
		require.NoError(t, err)
		second := mail.LastOTP(t).OTP

		// The first code no longer verifies even if it differs by chance.
		if first != second {
			_, err = svc.VerifyOTP(ctx, auth.RoleCompany, company.Email, first)
			assert.ErrorIs(t, err, auth.ErrInvalidOTP)
		}

		_, err = svc.VerifyOTP(ctx, auth.RoleCompany, company.Email, second)
		assert.NoError(t, err)
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		_, err := svc.Login(ctx, auth.RoleCompany, "  "+company.Email+" ", testutil.TestPassword)
		assert.NoError(t, err)
	})
}

func TestService_VerifyOTP(t *testing.T) {
	svc, db, mail := newTestService(t)
	ctx := testutil.TestContext(t)
	partner := testutil.CreateTestPartner(t, db)

	login := func(t *testing.T) string {
		t.Helper()
		_, err := svc.Login(ctx, auth.RolePartner, partner.Email, testutil.TestPassword)
		require.NoError(t, err)
		return mail.LastOTP(t).OTP
	}

	t.Run("issues a session exactly once", func(t *testing.T) {
		otp := login(t)

		session, err := svc.VerifyOTP(ctx, auth.RolePartner, partner.Email, otp)
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.Equal(t, "partner", session.User["role"])
		assert.Equal(t, partner.Email, session.User["email"])

		// Replay of a consumed code fails.
		_, err = svc.VerifyOTP(ctx, auth.RolePartner, partner.Email, otp)
		assert.ErrorIs(t, err, auth.ErrInvalidOTP)
	})

	t.Run("records last login", func(t *testing.T) {
		otp := login(t)
		_, err := svc.VerifyOTP(ctx, auth.RolePartner, partner.Email, otp)
		require.NoError(t, err)

		var row models.Partner
		require.NoError(t, db.First(&row, "id = ?", partner.ID).Error)
		require.NotNil(t, row.LastLoginAt)
		assert.WithinDuration(t, time.Now(), *row.LastLoginAt, 5*time.Second)
		assert.Nil(t, row.OTP)
	})

	t.Run("rejects a wrong code", func(t *testing.T) {
		otp := login(t)
		wrong := "000000"
		if wrong == otp {
			wrong = "000001"
		}
		_, err := svc.VerifyOTP(ctx, auth.RolePartner, partner.Email, wrong)
		assert.ErrorIs(t, err, auth.ErrInvalidOTP)
	})

	t.Run("rejects an expired code even on exact match", func(t *testing.T) {
		otp := login(t)

		err := db.Model(&models.Partner{}).
			Where("id = ?", partner.ID).
			Update("otp_expires_at", time.Now().Add(-time.Minute)).Error
		require.NoError(t, err)

		_, err = svc.VerifyOTP(ctx, auth.RolePartner, partner.Email, otp)
		assert.ErrorIs(t, err, auth.ErrOTPExpired)
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := svc.VerifyOTP(ctx, auth.RolePartner, "nobody@example.com", "123456")
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})
}

func resetTokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestService_ForgotPassword(t *testing.T) {
	svc, db, mail := newTestService(t)
	ctx := testutil.TestContext(t)
	admin := testutil.CreateTestAdmin(t, db)

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		err := svc.ForgotPassword(ctx, auth.RoleAdmin, "nobody@example.com")
		assert.NoError(t, err)
		assert.Empty(t, mail.Resets)
	})

	t.Run("known email gets a link with the raw token", func(t *testing.T) {
		require.NoError(t, svc.ForgotPassword(ctx, auth.RoleAdmin, admin.Email))

		sent := mail.LastReset(t)
		assert.Equal(t, admin.Email, sent.To)

		raw := resetTokenFromLink(t, sent.Link)

		// Only the digest is persisted.
		var row models.AdminAccount
		require.NoError(t, db.First(&row, "id = ?", admin.ID).Error)
		require.NotNil(t, row.Token)
		assert.NotEqual(t, raw, *row.Token)
	})
}

func TestService_ResetPassword(t *testing.T) {
	svc, db, mail := newTestService(t)
	ctx := testutil.TestContext(t)
	admin := testutil.CreateTestAdmin(t, db)

	issueToken := func(t *testing.T) string {
		t.Helper()
		require.NoError(t, svc.ForgotPassword(ctx, auth.RoleAdmin, admin.Email))
		return resetTokenFromLink(t, mail.LastReset(t).Link)
	}

	t.Run("resets with a valid token exactly once", func(t *testing.T) {
		raw := issueToken(t)

		require.NoError(t, svc.ResetPassword(ctx, auth.RoleAdmin, admin.Email, raw, "new-password-1"))

		// New password works, old one does not.
		_, err := svc.Login(ctx, auth.RoleAdmin, admin.Email, "new-password-1")
		assert.NoError(t, err)
		_, err = svc.Login(ctx, auth.RoleAdmin, admin.Email, testutil.TestPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		// Single use.
		err = svc.ResetPassword(ctx, auth.RoleAdmin, admin.Email, raw, "new-password-2")
		assert.ErrorIs(t, err, auth.ErrInvalidResetToken)
	})

	t.Run("rejects a wrong token", func(t *testing.T) {
		issueToken(t)
		err := svc.ResetPassword(ctx, auth.RoleAdmin, admin.Email, "bogus-token", "new-password-3")
		assert.ErrorIs(t, err, auth.ErrInvalidResetToken)
	})

	t.Run("rejects an expired token even on exact match", func(t *testing.T) {
		raw := issueToken(t)

		err := db.Model(&models.AdminAccount{}).
			Where("id = ?", admin.ID).
			Update("token_expires_at", time.Now().Add(-time.Minute)).Error
		require.NoError(t, err)

		err = svc.ResetPassword(ctx, auth.RoleAdmin, admin.Email, raw, "new-password-4")
		assert.ErrorIs(t, err, auth.ErrInvalidResetToken)
	})

	t.Run("rejects unknown account with the same error", func(t *testing.T) {
		err := svc.ResetPassword(ctx, auth.RoleAdmin, "nobody@example.com", "whatever", "new-password-5")
		assert.ErrorIs(t, err, auth.ErrInvalidResetToken)
	})
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp, err := auth.GenerateOTP()
		require.NoError(t, err)
		require.Len(t, otp, 6)
		for _, c := range otp {
			assert.True(t, c >= '0' && c <= '9')
		}
	}
}
