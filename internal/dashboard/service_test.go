package dashboard_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cira/cira-backend/internal/auth"
	"github.com/cira/cira-backend/internal/dashboard"
	"github.com/cira/cira-backend/internal/testutil"
)

func TestMonthLabels(t *testing.T) {
	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

	labels := dashboard.MonthLabels(now, 12)

	require.Len(t, labels, 12)
	assert.Equal(t, "2024-04", labels[0])
	assert.Equal(t, "2025-03", labels[11])

	// Strictly increasing, consecutive months.
	for i := 1; i < len(labels); i++ {
		prev, err := time.Parse("2006-01", labels[i-1])
		require.NoError(t, err)
		cur, err := time.Parse("2006-01", labels[i])
		require.NoError(t, err)
		assert.Equal(t, prev.AddDate(0, 1, 0), cur)
	}
}

func TestMonthLabels_YearBoundary(t *testing.T) {
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	labels := dashboard.MonthLabels(now, 12)

	assert.Equal(t, "2024-02", labels[0])
	assert.Equal(t, "2025-01", labels[11])
}

func TestService_Summary_Admin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	svc := dashboard.NewService(db)
	ctx := testutil.TestContext(t)

	company := testutil.CreateTestCompany(t, db)
	partner := testutil.CreateTestPartner(t, db)

	now := time.Now()
	prevMonth := time.Date(now.Year(), now.Month(), 1, 12, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	testutil.CreateTestConsultation(t, db, &company.ID, nil, now)
	testutil.CreateTestConsultation(t, db, nil, &partner.ID, prevMonth)
	testutil.CreateTestReferral(t, db, &company.ID, nil, now)

	summary, err := svc.Summary(ctx, auth.RoleAdmin, company.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Cards["totalCompanies"])
	assert.Equal(t, int64(1), summary.Cards["totalPartners"])
	assert.Equal(t, int64(2), summary.Cards["totalConsultations"])
	assert.Equal(t, int64(1), summary.Cards["totalDoctorsReferred"])

	assert.Equal(t, "2d_line", summary.Chart.Type)
	assert.Equal(t, "month", summary.Chart.XAxisKey)
	require.Len(t, summary.Chart.Points, 12)

	// Current month is the last bucket and carries today's events.
	last := summary.Chart.Points[11]
	assert.Equal(t, now.Format("2006-01"), last.Month)
	assert.Equal(t, int64(1), last.Consultations)
	assert.Equal(t, int64(1), last.DoctorsReferred)

	// Last month holds the backdated consultation.
	assert.Equal(t, int64(1), summary.Chart.Points[10].Consultations)

	// Everything else is zero-filled, not missing.
	for _, p := range summary.Chart.Points[:10] {
		assert.Zero(t, p.Consultations)
		assert.Zero(t, p.DoctorsReferred)
	}
}

func TestService_Summary_Company(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	svc := dashboard.NewService(db)
	ctx := testutil.TestContext(t)

	company := testutil.CreateTestCompany(t, db)
	other := testutil.CreateTestCompany(t, db)
	testutil.CreateTestEmployee(t, db, company)
	testutil.CreateTestEmployee(t, db, company)
	testutil.CreateTestEmployee(t, db, other)

	now := time.Now()
	testutil.CreateTestConsultation(t, db, &company.ID, nil, now)
	testutil.CreateTestConsultation(t, db, &other.ID, nil, now)
	testutil.CreateTestReferral(t, db, &other.ID, nil, now)

	summary, err := svc.Summary(ctx, auth.RoleCompany, company.ID)
	require.NoError(t, err)

	// Only the caller's own tenancy counts.
	assert.Equal(t, int64(2), summary.Cards["totalEmployees"])
	assert.Equal(t, int64(1), summary.Cards["totalConsultations"])
	assert.Equal(t, int64(0), summary.Cards["totalDoctorsReferred"])
	assert.NotContains(t, summary.Cards, "totalCompanies")

	require.Len(t, summary.Chart.Points, 12)
	assert.Equal(t, int64(1), summary.Chart.Points[11].Consultations)
}

func TestService_Summary_Partner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	svc := dashboard.NewService(db)
	ctx := testutil.TestContext(t)

	partner := testutil.CreateTestPartner(t, db)

	now := time.Now()
	testutil.CreateTestReferral(t, db, nil, &partner.ID, now)

	summary, err := svc.Summary(ctx, auth.RolePartner, partner.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.Cards["totalConsultations"])
	assert.Equal(t, int64(1), summary.Cards["totalDoctorsReferred"])
	assert.NotContains(t, summary.Cards, "totalEmployees")
	assert.Equal(t, int64(1), summary.Chart.Points[11].DoctorsReferred)
}

func TestService_Summary_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	svc := dashboard.NewService(db)
	ctx := testutil.TestContext(t)

	t.Run("employee role has no dashboard", func(t *testing.T) {
		company := testutil.CreateTestCompany(t, db)
		employee := testutil.CreateTestEmployee(t, db, company)

		_, err := svc.Summary(ctx, auth.RoleEmployee, employee.ID)
		assert.ErrorIs(t, err, dashboard.ErrUnsupportedRole)
	})

	t.Run("unknown company", func(t *testing.T) {
		partner := testutil.CreateTestPartner(t, db)

		_, err := svc.Summary(ctx, auth.RoleCompany, partner.ID)
		assert.ErrorIs(t, err, dashboard.ErrEntityNotFound)
	})
}
