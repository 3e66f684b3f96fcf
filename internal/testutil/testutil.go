package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/database/models"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&models.AdminAccount{},
		&models.Company{},
		&models.Partner{},
		&models.Employee{},
		&models.Consultation{},
		&models.DoctorReferral{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// TestPassword is the plaintext behind every fixture account.
const TestPassword = "testpassword123"

func hashTestPassword(t *testing.T) string {
	t.Helper()
	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return hash
}

// CreateTestAdmin creates an admin account fixture
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.AdminAccount {
	t.Helper()

	admin := &models.AdminAccount{
		Base: models.Base{ID: uuid.New()},
		Credentials: models.Credentials{
			Email:        "admin-" + uuid.New().String()[:8] + "@example.com",
			PasswordHash: hashTestPassword(t),
		},
		FirstName: "Test",
		LastName:  "Admin",
	}

	if err := db.Create(admin).Error; err != nil {
		t.Fatalf("failed to create test admin: %v", err)
	}

	return admin
}

// CreateTestCompany creates a company account fixture
func CreateTestCompany(t *testing.T, db *gorm.DB) *models.Company {
	t.Helper()

	company := &models.Company{
		Base: models.Base{ID: uuid.New()},
		Credentials: models.Credentials{
			Email:        "company-" + uuid.New().String()[:8] + "@example.com",
			PasswordHash: hashTestPassword(t),
		},
		CompanyName: "Test Company",
		PersonName:  "Test Person",
		Code:        "COMP-" + uuid.New().String()[:6],
		Status:      "Active",
	}

	if err := db.Create(company).Error; err != nil {
		t.Fatalf("failed to create test company: %v", err)
	}

	return company
}

// CreateTestPartner creates a partner account fixture
func CreateTestPartner(t *testing.T, db *gorm.DB) *models.Partner {
	t.Helper()

	partner := &models.Partner{
		Base: models.Base{ID: uuid.New()},
		Credentials: models.Credentials{
			Email:        "partner-" + uuid.New().String()[:8] + "@example.com",
			PasswordHash: hashTestPassword(t),
		},
		PartnerName: "Test Partner",
		PersonName:  "Test Person",
		Status:      "Active",
	}

	if err := db.Create(partner).Error; err != nil {
		t.Fatalf("failed to create test partner: %v", err)
	}

	return partner
}

// CreateTestEmployee creates an employee fixture under the given company
func CreateTestEmployee(t *testing.T, db *gorm.DB, company *models.Company) *models.Employee {
	t.Helper()

	employee := &models.Employee{
		Base: models.Base{ID: uuid.New()},
		Credentials: models.Credentials{
			Email:        "employee-" + uuid.New().String()[:8] + "@example.com",
			PasswordHash: hashTestPassword(t),
		},
		EmployeeName: "Test Employee",
		CompanyID:    company.ID,
		Status:       "Active",
	}

	if err := db.Create(employee).Error; err != nil {
		t.Fatalf("failed to create test employee: %v", err)
	}

	return employee
}

// CreateTestConsultation creates a consultation fixture at the given time
func CreateTestConsultation(t *testing.T, db *gorm.DB, companyID, partnerID *uuid.UUID, createdAt time.Time) *models.Consultation {
	t.Helper()

	consultation := &models.Consultation{
		Base:             models.Base{ID: uuid.New(), CreatedAt: createdAt},
		CompanyID:        companyID,
		PartnerID:        partnerID,
		ConsultationCode: "CONS-" + uuid.New().String()[:8],
		PatientName:      "Test Patient",
		Type:             "OPC",
		Status:           "Pending",
	}

	if err := db.Create(consultation).Error; err != nil {
		t.Fatalf("failed to create test consultation: %v", err)
	}
	// GORM overwrites CreatedAt on insert; force the fixture time.
	if err := db.Model(consultation).Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("failed to backdate consultation: %v", err)
	}
	consultation.CreatedAt = createdAt

	return consultation
}

// CreateTestReferral creates a doctor referral fixture at the given time
func CreateTestReferral(t *testing.T, db *gorm.DB, companyID, partnerID *uuid.UUID, createdAt time.Time) *models.DoctorReferral {
	t.Helper()

	referral := &models.DoctorReferral{
		Base:                 models.Base{ID: uuid.New(), CreatedAt: createdAt},
		CompanyID:            companyID,
		PartnerID:            partnerID,
		ReferralCode:         "REF-" + uuid.New().String()[:8],
		ReferredToDoctorName: "Dr. Test",
		Platform:             "General",
		Status:               "Success",
	}

	if err := db.Create(referral).Error; err != nil {
		t.Fatalf("failed to create test referral: %v", err)
	}
	if err := db.Model(referral).Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("failed to backdate referral: %v", err)
	}
	referral.CreatedAt = createdAt

	return referral
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given account
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, accountID uuid.UUID, role auth.Role, email string) string {
	t.Helper()

	token, err := jwtService.GenerateToken(accountID, role, email)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// TestLogger returns a logger that discards everything
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// RecordingMailer captures outgoing mail instead of sending it
type RecordingMailer struct {
	mu     sync.Mutex
	OTPs   []SentOTP
	Resets []SentReset
}

type SentOTP struct {
	To  string
	OTP string
}

type SentReset struct {
	To   string
	Link string
}

func (m *RecordingMailer) SendOTPEmail(ctx context.Context, to, otp string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OTPs = append(m.OTPs, SentOTP{To: to, OTP: otp})
	return nil
}

func (m *RecordingMailer) SendResetEmail(ctx context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets = append(m.Resets, SentReset{To: to, Link: link})
	return nil
}

// LastOTP returns the most recently captured OTP
func (m *RecordingMailer) LastOTP(t *testing.T) SentOTP {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.OTPs) == 0 {
		t.Fatal("no OTP emails captured")
	}
	return m.OTPs[len(m.OTPs)-1]
}

// LastReset returns the most recently captured reset email
func (m *RecordingMailer) LastReset(t *testing.T) SentReset {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Resets) == 0 {
		t.Fatal("no reset emails captured")
	}
	return m.Resets[len(m.Resets)-1]
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
