package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDashboardService_Summary(t *testing.T) {
	permits := repository.NewMemoryPermitsRepo()
	visitors := repository.NewMemoryVisitorsRepo()
	meters := repository.NewMemoryMetersRepo()
	roles := seededRoles(t)
	svc := NewDashboardService(permits, visitors, meters, roles, zap.NewNop())
	ctx := context.Background()

	// 两张 PENDING 许可证，一张推到 APPROVED
	p1, err := permits.CreatePermitWithApprovals(ctx, &domain.Permit{
		Title: "Job A", WorkType: "HOT_WORK", CreatedBy: "u1",
		StartDate: time.Now(), EndDate: time.Now().Add(time.Hour),
	}, []string{domain.RoleFireman})
	require.NoError(t, err)
	_, err = permits.CreatePermitWithApprovals(ctx, &domain.Permit{
		Title: "Job B", WorkType: "ELECTRICAL", CreatedBy: "u1",
		StartDate: time.Now(), EndDate: time.Now().Add(time.Hour),
	}, []string{domain.RoleFireman})
	require.NoError(t, err)
	require.NoError(t, permits.UpdatePermitStatus(ctx, p1,
		[]domain.PermitStatus{domain.PermitPending}, domain.PermitApproved))

	_, err = visitors.CreateRequest(ctx, &domain.VisitorRequest{
		RequestNumber: "VR-1", CompanyID: "c1", VisitorName: "v", Phone: "1",
		Status: domain.VisitorPending, RequiresApproval: true,
		ExpiresAt: sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true},
	})
	require.NoError(t, err)

	engineer := testUser("eng-1", domain.RoleEngineer)
	meterSvc := NewMeterService(meters, roles, zap.NewNop())
	_, err = meterSvc.CreateReading(ctx, CreateReadingRequest{
		MeterSerial: "E-001", MeterType: "electricity",
		ReadingValue: "150", PreviousReading: "100",
	}, engineer)
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, testUser("admin-1", domain.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PermitsByStatus[string(domain.PermitPending)])
	assert.Equal(t, 1, summary.PermitsByStatus[string(domain.PermitApproved)])

	require.Len(t, summary.VisitorsByDay, 1)
	assert.Equal(t, 1, summary.VisitorsByDay[0].Count)

	require.Len(t, summary.MeterConsumption, 1)
	assert.Equal(t, "electricity", summary.MeterConsumption[0].MeterType)
	assert.Equal(t, "50", summary.MeterConsumption[0].Total)
}

func TestDashboardService_Summary_RequiresPermission(t *testing.T) {
	svc := NewDashboardService(
		repository.NewMemoryPermitsRepo(),
		repository.NewMemoryVisitorsRepo(),
		repository.NewMemoryMetersRepo(),
		seededRoles(t),
		zap.NewNop(),
	)

	// 门卫没有 dashboard.view
	_, err := svc.Summary(context.Background(), testUser("guard-1", domain.RoleGuard))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
