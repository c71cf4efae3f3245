package service

import (
	"context"
	"testing"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type visitorFixture struct {
	svc          *VisitorService
	companies    *repository.MemoryCompaniesRepo
	preApprovals *repository.MemoryPreApprovalsRepo
}

func newVisitorFixture(t *testing.T) *visitorFixture {
	t.Helper()
	companies := repository.NewMemoryCompaniesRepo()
	preApprovals := repository.NewMemoryPreApprovalsRepo()
	svc := NewVisitorService(
		repository.NewMemoryVisitorsRepo(),
		preApprovals,
		seededRoles(t),
		testDirectory(t, companies),
		24*time.Hour,
		5,
		zap.NewNop(),
	)
	return &visitorFixture{svc: svc, companies: companies, preApprovals: preApprovals}
}

func TestVisitorService_Submit_ApprovalChannel(t *testing.T) {
	f := newVisitorFixture(t)
	ctx := context.Background()
	upsertTestCompany(t, f.companies, "ACME", true)

	resp, err := f.svc.Submit(ctx, SubmitCheckInRequest{
		CompanyCode: "ACME",
		VisitorName: "Zhang Wei",
		Phone:       "13800000000",
		Purpose:     "interview",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.VisitorPending), resp.Status)
	assert.Equal(t, 5, resp.PollIntervalSec)
	assert.Regexp(t, `^VR-\d{8}-[0-9A-F]{6}$`, resp.RequestNumber)

	// 轮询看到 PENDING 和过期时间
	status, err := f.svc.Status(ctx, resp.RequestNumber)
	require.NoError(t, err)
	assert.Equal(t, string(domain.VisitorPending), status.Status)
	assert.NotEmpty(t, status.ExpiresAt)
}

func TestVisitorService_Submit_SelfServiceChannel(t *testing.T) {
	f := newVisitorFixture(t)
	upsertTestCompany(t, f.companies, "OPEN", false)

	// requireApproval=false 直接 CHECKED_IN
	resp, err := f.svc.Submit(context.Background(), SubmitCheckInRequest{
		CompanyCode: "OPEN",
		VisitorName: "Li Na",
		Phone:       "13800000001",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.VisitorCheckedIn), resp.Status)

	status, err := f.svc.Status(context.Background(), resp.RequestNumber)
	require.NoError(t, err)
	assert.NotEmpty(t, status.CheckInTime)
}

func TestVisitorService_Submit_Validation(t *testing.T) {
	f := newVisitorFixture(t)
	ctx := context.Background()
	upsertTestCompany(t, f.companies, "ACME", true)

	_, err := f.svc.Submit(ctx, SubmitCheckInRequest{CompanyCode: "ACME", Phone: "138"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Submit(ctx, SubmitCheckInRequest{CompanyCode: "NOPE", VisitorName: "x", Phone: "138"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVisitorService_Submit_WithPreApproval(t *testing.T) {
	f := newVisitorFixture(t)
	ctx := context.Background()
	companyID := upsertTestCompany(t, f.companies, "ACME", true)

	now := time.Now()
	_, err := f.preApprovals.Create(ctx, &domain.PreApproval{
		ApprovalCode: "PA-TEST-000001",
		CompanyID:    companyID,
		VisitorName:  "Wang Fang",
		Status:       domain.PreApprovalActive,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(time.Hour),
		CreatedBy:    "reception-1",
	})
	require.NoError(t, err)

	// 预批码绕过审批直接 CHECKED_IN
	resp, err := f.svc.Submit(ctx, SubmitCheckInRequest{
		CompanyCode:     "ACME",
		VisitorName:     "Wang Fang",
		Phone:           "13800000002",
		PreApprovalCode: "PA-TEST-000001",
	})
	require.NoError(t, err)
	assert.Equal(t, string(domain.VisitorCheckedIn), resp.Status)

	// 预批码已消费，二次使用失败
	_, err = f.svc.Submit(ctx, SubmitCheckInRequest{
		CompanyCode:     "ACME",
		VisitorName:     "Impostor",
		Phone:           "13800000003",
		PreApprovalCode: "PA-TEST-000001",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestVisitorService_Submit_PreApprovalWrongCompany(t *testing.T) {
	f := newVisitorFixture(t)
	ctx := context.Background()
	upsertTestCompany(t, f.companies, "ACME", true)
	otherID := upsertTestCompany(t, f.companies, "OTHER", true)

	now := time.Now()
	_, err := f.preApprovals.Create(ctx, &domain.PreApproval{
		ApprovalCode: "PA-TEST-000002",
		CompanyID:    otherID,
		VisitorName:  "Wang Fang",
		Status:       domain.PreApprovalActive,
		ValidFrom:    now.Add(-time.Hour),
		ValidUntil:   now.Add(time.Hour),
		CreatedBy:    "reception-1",
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, SubmitCheckInRequest{
		CompanyCode:     "ACME",
		VisitorName:     "Wang Fang",
		Phone:           "13800000002",
		PreApprovalCode: "PA-TEST-000002",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestVisitorService_DecideAndGateFlow(t *testing.T) {
	f := newVisitorFixture(t)
	ctx := context.Background()
	upsertTestCompany(t, f.companies, "ACME", true)

	resp, err := f.svc.Submit(ctx, SubmitCheckInRequest{
		CompanyCode: "ACME", VisitorName: "Zhang Wei", Phone: "13800000000",
	})
	require.NoError(t, err)
	v, err := f.svc.visitors.GetByRequestNumber(ctx, resp.RequestNumber)
	require.NoError(t, err)

	reception := testUser("reception-1", domain.RoleReception)
	guard := testUser("guard-1", domain.RoleGuard)

	// 门卫不能做审批决策
	_, err = f.svc.Decide(ctx, DecideVisitorRequest{RequestID: v.RequestID, Approve: true}, guard)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// 未 APPROVED 不能签到
	_, err = f.svc.CheckIn(ctx, v.RequestID, guard)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// 前台通过
	item, err := f.svc.Decide(ctx, DecideVisitorRequest{RequestID: v.RequestID, Approve: true}, reception)
	require.NoError(t, err)
	assert.Equal(t, string(domain.VisitorApproved), item.Status)
	assert.Equal(t, "reception-1", item.DecidedBy)

	// 二次决策失败
	_, err = f.svc.Decide(ctx, DecideVisitorRequest{RequestID: v.RequestID, Approve: false}, reception)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// 门卫签到 / 签出
	item, err = f.svc.CheckIn(ctx, v.RequestID, guard)
	require.NoError(t, err)
	assert.Equal(t, string(domain.VisitorCheckedIn), item.Status)
	assert.NotEmpty(t, item.CheckInTime)

	item, err = f.svc.CheckOut(ctx, v.RequestID, guard)
	require.NoError(t, err)
	assert.Equal(t, string(domain.VisitorCheckedOut), item.Status)
	assert.NotEmpty(t, item.CheckOutTime)
}

func TestVisitorService_Decide_ExpiredPending(t *testing.T) {
	f := newVisitorFixture(t)
	ctx := context.Background()
	upsertTestCompany(t, f.companies, "ACME", true)

	resp, err := f.svc.Submit(ctx, SubmitCheckInRequest{
		CompanyCode: "ACME", VisitorName: "Zhang Wei", Phone: "13800000000",
	})
	require.NoError(t, err)
	v, err := f.svc.visitors.GetByRequestNumber(ctx, resp.RequestNumber)
	require.NoError(t, err)

	// 时钟拨过审批窗口
	f.svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	// 轮询看到派生 EXPIRED
	status, err := f.svc.Status(ctx, resp.RequestNumber)
	require.NoError(t, err)
	assert.Equal(t, string(domain.VisitorExpired), status.Status)

	// 过期请求不可再决策
	_, err = f.svc.Decide(ctx, DecideVisitorRequest{RequestID: v.RequestID, Approve: true},
		testUser("reception-1", domain.RoleReception))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestVisitorService_List(t *testing.T) {
	f := newVisitorFixture(t)
	ctx := context.Background()
	upsertTestCompany(t, f.companies, "ACME", true)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Submit(ctx, SubmitCheckInRequest{
			CompanyCode: "ACME", VisitorName: "Visitor", Phone: "138",
		})
		require.NoError(t, err)
	}

	resp, err := f.svc.List(ctx, ListVisitorsRequest{Page: 1, PageSize: 2},
		testUser("guard-1", domain.RoleGuard))
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 3, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)

	// 工程师没有 visitors.view
	_, err = f.svc.List(ctx, ListVisitorsRequest{}, testUser("eng-1", domain.RoleEngineer))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
