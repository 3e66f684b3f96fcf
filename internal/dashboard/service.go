package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUnsupportedRole = errors.New("role is not supported for dashboard")
	ErrEntityNotFound  = errors.New("dashboard entity not found")
)

const seriesMonths = 12

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type SeriesKey struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type Point struct {
	Month           string `json:"month"`
	Consultations   int64  `json:"consultations"`
	DoctorsReferred int64  `json:"doctorsReferred"`
}

type Chart struct {
	Type     string      `json:"type"`
	XAxisKey string      `json:"xAxisKey"`
	Series   []SeriesKey `json:"series"`
	Points   []Point     `json:"points"`
}

type Summary struct {
	Cards map[string]int64 `json:"cards"`
	Chart Chart            `json:"chart"`
}

// Summary builds the role-shaped dashboard for the calling account.
func (s *Service) Summary(ctx context.Context, role auth.Role, accountID uuid.UUID) (*Summary, error) {
	switch role {
	case auth.RoleAdmin:
		return s.adminSummary(ctx)
	case auth.RoleCompany:
		return s.companySummary(ctx, accountID)
	case auth.RolePartner:
		return s.partnerSummary(ctx, accountID)
	default:
		return nil, ErrUnsupportedRole
	}
}

func (s *Service) adminSummary(ctx context.Context) (*Summary, error) {
	cards := map[string]int64{}

	counts := []struct {
		key   string
		model any
	}{
		{"totalCompanies", &models.Company{}},
		{"totalPartners", &models.Partner{}},
		{"totalConsultations", &models.Consultation{}},
		{"totalDoctorsReferred", &models.DoctorReferral{}},
	}
	for _, c := range counts {
		var n int64
		if err := s.db.WithContext(ctx).Model(c.model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("counting %s: %w", c.key, err)
		}
		cards[c.key] = n
	}

	chart, err := s.chart(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Summary{Cards: cards, Chart: *chart}, nil
}

func (s *Service) companySummary(ctx context.Context, accountID uuid.UUID) (*Summary, error) {
	var company models.Company
	if err := s.db.WithContext(ctx).First(&company, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}

	scope := func(q *gorm.DB) *gorm.DB {
		return q.Where("company_id = ?", company.ID)
	}

	cards := map[string]int64{}

	var employees int64
	if err := s.db.WithContext(ctx).Model(&models.Employee{}).Scopes(scope).Count(&employees).Error; err != nil {
		return nil, fmt.Errorf("counting employees: %w", err)
	}
	cards["totalEmployees"] = employees

	if err := s.eventCounts(ctx, scope, cards); err != nil {
		return nil, err
	}

	chart, err := s.chart(ctx, scope)
	if err != nil {
		return nil, err
	}

	return &Summary{Cards: cards, Chart: *chart}, nil
}

func (s *Service) partnerSummary(ctx context.Context, accountID uuid.UUID) (*Summary, error) {
	var partner models.Partner
	if err := s.db.WithContext(ctx).First(&partner, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}

	scope := func(q *gorm.DB) *gorm.DB {
		return q.Where("partner_id = ?", partner.ID)
	}

	cards := map[string]int64{}
	if err := s.eventCounts(ctx, scope, cards); err != nil {
		return nil, err
	}

	chart, err := s.chart(ctx, scope)
	if err != nil {
		return nil, err
	}

	return &Summary{Cards: cards, Chart: *chart}, nil
}

func (s *Service) eventCounts(ctx context.Context, scope func(*gorm.DB) *gorm.DB, cards map[string]int64) error {
	var consultations, referrals int64

	if err := s.db.WithContext(ctx).Model(&models.Consultation{}).Scopes(scope).Count(&consultations).Error; err != nil {
		return fmt.Errorf("counting consultations: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.DoctorReferral{}).Scopes(scope).Count(&referrals).Error; err != nil {
		return fmt.Errorf("counting referrals: %w", err)
	}

	cards["totalConsultations"] = consultations
	cards["totalDoctorsReferred"] = referrals
	return nil
}

// chart assembles the dense 12-month series. Bucketing happens in Go so
// the same code runs against Postgres and the SQLite test driver.
func (s *Service) chart(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (*Chart, error) {
	now := time.Now()
	labels := MonthLabels(now, seriesMonths)
	windowStart := monthFloor(now).AddDate(0, -(seriesMonths - 1), 0)

	consultations, err := s.monthCounts(ctx, &models.Consultation{}, scope, windowStart)
	if err != nil {
		return nil, err
	}
	referrals, err := s.monthCounts(ctx, &models.DoctorReferral{}, scope, windowStart)
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(labels))
	for i, label := range labels {
		points[i] = Point{
			Month:           label,
			Consultations:   consultations[label],
			DoctorsReferred: referrals[label],
		}
	}

	return &Chart{
		Type:     "2d_line",
		XAxisKey: "month",
		Series: []SeriesKey{
			{Key: "consultations", Label: "Consultations"},
			{Key: "doctorsReferred", Label: "Doctors Referred"},
		},
		Points: points,
	}, nil
}

func (s *Service) monthCounts(ctx context.Context, model any, scope func(*gorm.DB) *gorm.DB, windowStart time.Time) (map[string]int64, error) {
	q := s.db.WithContext(ctx).Model(model).Where("created_at >= ?", windowStart)
	if scope != nil {
		q = q.Scopes(scope)
	}

	var createdAt []time.Time
	if err := q.Pluck("created_at", &createdAt).Error; err != nil {
		return nil, fmt.Errorf("loading event months: %w", err)
	}

	counts := make(map[string]int64, seriesMonths)
	for _, t := range createdAt {
		counts[t.Format("2006-01")]++
	}
	return counts, nil
}

// MonthLabels returns n consecutive YYYY-MM labels, oldest first, ending
// at now's calendar month.
func MonthLabels(now time.Time, n int) []string {
	first := monthFloor(now)
	out := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, first.AddDate(0, -i, 0).Format("2006-01"))
	}
	return out
}

func monthFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
