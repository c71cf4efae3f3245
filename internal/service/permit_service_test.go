package service

import (
	"context"
	"testing"

	"sitepass/internal/domain"
	"sitepass/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPermitService(t *testing.T) (*PermitService, *repository.MemoryPermitsRepo) {
	t.Helper()
	permits := repository.NewMemoryPermitsRepo()
	return NewPermitService(permits, seededRoles(t), zap.NewNop()), permits
}

func createTestPermit(t *testing.T, svc *PermitService, approverRoles []string) *PermitDetail {
	t.Helper()
	detail, err := svc.Create(context.Background(), CreatePermitRequest{
		Title:         "Hot work on roof",
		WorkType:      "HOT_WORK",
		Priority:      "HIGH",
		StartDate:     "2026-09-01",
		EndDate:       "2026-09-03",
		ApproverRoles: approverRoles,
	}, testUser("requestor-1", domain.RoleRequestor))
	require.NoError(t, err)
	return detail
}

func TestPermitService_Create(t *testing.T) {
	svc, _ := newPermitService(t)

	detail := createTestPermit(t, svc, nil)
	assert.Equal(t, string(domain.PermitPending), detail.Status)
	// 默认只需消防审批
	require.Len(t, detail.Approvals, 1)
	assert.Equal(t, domain.RoleFireman, detail.Approvals[0].ApproverRole)
	assert.Equal(t, string(domain.DecisionPending), detail.Approvals[0].Decision)
}

func TestPermitService_Create_Validation(t *testing.T) {
	svc, _ := newPermitService(t)
	ctx := context.Background()
	requestor := testUser("requestor-1", domain.RoleRequestor)

	// 缺标题
	_, err := svc.Create(ctx, CreatePermitRequest{
		WorkType: "HOT_WORK", StartDate: "2026-09-01", EndDate: "2026-09-03",
	}, requestor)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// end_date 早于 start_date
	_, err = svc.Create(ctx, CreatePermitRequest{
		Title: "x", WorkType: "HOT_WORK", StartDate: "2026-09-03", EndDate: "2026-09-01",
	}, requestor)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// 门卫没有 permits.create
	_, err = svc.Create(ctx, CreatePermitRequest{
		Title: "x", WorkType: "HOT_WORK", StartDate: "2026-09-01", EndDate: "2026-09-03",
	}, testUser("guard-1", domain.RoleGuard))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPermitService_Decide_SingleApprover(t *testing.T) {
	svc, _ := newPermitService(t)
	ctx := context.Background()
	detail := createTestPermit(t, svc, nil)
	fireman := testUser("fireman-1", domain.RoleFireman)

	// 消防通过 => 全部通过 => APPROVED
	after, err := svc.Decide(ctx, DecidePermitRequest{
		PermitID: detail.PermitID, Approve: true, Comment: "checked on site",
	}, fireman)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PermitApproved), after.Status)
	assert.Equal(t, string(domain.DecisionApproved), after.Approvals[0].Decision)
	assert.Equal(t, "checked on site", after.Approvals[0].Comment)

	// 同一审批行二次决策被拒
	_, err = svc.Decide(ctx, DecidePermitRequest{
		PermitID: detail.PermitID, Approve: false,
	}, fireman)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPermitService_Decide_MultiApprover(t *testing.T) {
	svc, _ := newPermitService(t)
	ctx := context.Background()
	detail := createTestPermit(t, svc, []string{domain.RoleFireman, domain.RoleAdmin})

	// 消防先通过，还差管理员 => 仍 PENDING
	after, err := svc.Decide(ctx, DecidePermitRequest{
		PermitID: detail.PermitID, Approve: true,
	}, testUser("fireman-1", domain.RoleFireman))
	require.NoError(t, err)
	assert.Equal(t, string(domain.PermitPending), after.Status)

	// 管理员拒绝 => 一票否决 => REJECTED
	after, err = svc.Decide(ctx, DecidePermitRequest{
		PermitID: detail.PermitID, Approve: false, Comment: "missing isolation plan",
	}, testUser("admin-1", domain.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, string(domain.PermitRejected), after.Status)
}

func TestPermitService_Decide_NoApprovalRowForRole(t *testing.T) {
	svc, _ := newPermitService(t)
	detail := createTestPermit(t, svc, []string{domain.RoleFireman})

	// 管理员有 permits.approve 权限，但该许可证没有其角色的审批行
	_, err := svc.Decide(context.Background(), DecidePermitRequest{
		PermitID: detail.PermitID, Approve: true,
	}, testUser("admin-1", domain.RoleAdmin))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPermitService_RevokeAndReapprove(t *testing.T) {
	svc, _ := newPermitService(t)
	ctx := context.Background()
	detail := createTestPermit(t, svc, nil)
	fireman := testUser("fireman-1", domain.RoleFireman)

	_, err := svc.Decide(ctx, DecidePermitRequest{PermitID: detail.PermitID, Approve: true}, fireman)
	require.NoError(t, err)

	// 撤销
	after, err := svc.Revoke(ctx, detail.PermitID, fireman)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PermitRevoked), after.Status)

	// 重复撤销失败
	_, err = svc.Revoke(ctx, detail.PermitID, fireman)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// 仅 FIREMAN 能 reapprove（管理员持有权限key也不行）
	_, err = svc.Reapprove(ctx, detail.PermitID, testUser("admin-1", domain.RoleAdmin))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// reapprove 回到 PENDING 且审批行重置
	after, err = svc.Reapprove(ctx, detail.PermitID, fireman)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PermitPending), after.Status)
	require.Len(t, after.Approvals, 1)
	assert.Equal(t, string(domain.DecisionPending), after.Approvals[0].Decision)
	assert.Empty(t, after.Approvals[0].ApprovedBy)
}

func TestPermitService_Close(t *testing.T) {
	svc, _ := newPermitService(t)
	ctx := context.Background()
	detail := createTestPermit(t, svc, nil)
	fireman := testUser("fireman-1", domain.RoleFireman)

	// PENDING 不可关闭
	_, err := svc.Close(ctx, detail.PermitID, fireman)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.Decide(ctx, DecidePermitRequest{PermitID: detail.PermitID, Approve: true}, fireman)
	require.NoError(t, err)

	after, err := svc.Close(ctx, detail.PermitID, fireman)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PermitClosed), after.Status)
}

func TestPermitService_Extend(t *testing.T) {
	svc, _ := newPermitService(t)
	ctx := context.Background()
	detail := createTestPermit(t, svc, nil)
	fireman := testUser("fireman-1", domain.RoleFireman)

	// 新日期必须晚于当前 end_date
	_, err := svc.Extend(ctx, ExtendPermitRequest{PermitID: detail.PermitID, EndDate: "2026-09-02"}, fireman)
	assert.ErrorIs(t, err, domain.ErrValidation)

	after, err := svc.Extend(ctx, ExtendPermitRequest{PermitID: detail.PermitID, EndDate: "2026-09-10"}, fireman)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-10", after.EndDate)
	// 状态不变
	assert.Equal(t, string(domain.PermitPending), after.Status)
}

func TestPermitService_List(t *testing.T) {
	svc, _ := newPermitService(t)
	ctx := context.Background()
	createTestPermit(t, svc, nil)
	createTestPermit(t, svc, nil)

	resp, err := svc.List(ctx, ListPermitsRequest{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Pagination.Total)

	resp, err = svc.List(ctx, ListPermitsRequest{Status: string(domain.PermitApproved)})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}
