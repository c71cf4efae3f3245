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

func newPreApprovalFixture(t *testing.T) (*PreApprovalService, *repository.MemoryCompaniesRepo) {
	t.Helper()
	companies := repository.NewMemoryCompaniesRepo()
	svc := NewPreApprovalService(
		repository.NewMemoryPreApprovalsRepo(),
		seededRoles(t),
		testDirectory(t, companies),
		zap.NewNop(),
	)
	return svc, companies
}

func TestPreApprovalService_CreateAndValidate(t *testing.T) {
	svc, companies := newPreApprovalFixture(t)
	ctx := context.Background()
	upsertTestCompany(t, companies, "ACME", true)
	reception := testUser("reception-1", domain.RoleReception)

	item, err := svc.Create(ctx, CreatePreApprovalRequest{
		CompanyCode: "ACME",
		VisitorName: "Wang Fang",
		ValidFrom:   "2026-09-01",
		ValidUntil:  "2026-09-07",
	}, reception)
	require.NoError(t, err)
	assert.Regexp(t, `^PA-\d{8}-[0-9A-F]{6}$`, item.ApprovalCode)
	assert.Equal(t, string(domain.PreApprovalActive), item.Status)
	// 创建响应必须带 Repository 生成的 ID 和创建时间
	assert.NotEmpty(t, item.PreApprovalID)
	assert.NotEmpty(t, item.CreatedAt)

	got, err := svc.Validate(ctx, item.ApprovalCode)
	require.NoError(t, err)
	assert.Equal(t, item.PreApprovalID, got.PreApprovalID)
}

func TestPreApprovalService_Create_Validation(t *testing.T) {
	svc, companies := newPreApprovalFixture(t)
	ctx := context.Background()
	upsertTestCompany(t, companies, "ACME", true)
	reception := testUser("reception-1", domain.RoleReception)

	// 日期倒置
	_, err := svc.Create(ctx, CreatePreApprovalRequest{
		CompanyCode: "ACME", VisitorName: "x", ValidFrom: "2026-09-07", ValidUntil: "2026-09-01",
	}, reception)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// 门卫没有 preapprovals.create
	_, err = svc.Create(ctx, CreatePreApprovalRequest{
		CompanyCode: "ACME", VisitorName: "x", ValidFrom: "2026-09-01", ValidUntil: "2026-09-07",
	}, testUser("guard-1", domain.RoleGuard))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestPreApprovalService_Cancel(t *testing.T) {
	svc, companies := newPreApprovalFixture(t)
	ctx := context.Background()
	upsertTestCompany(t, companies, "ACME", true)
	reception := testUser("reception-1", domain.RoleReception)

	item, err := svc.Create(ctx, CreatePreApprovalRequest{
		CompanyCode: "ACME", VisitorName: "Wang Fang",
		ValidFrom: "2026-09-01", ValidUntil: "2026-09-07",
	}, reception)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, item.ApprovalCode, reception)
	require.NoError(t, err)
	assert.Equal(t, string(domain.PreApprovalCancelled), cancelled.Status)

	// 已取消不能再取消
	_, err = svc.Cancel(ctx, item.ApprovalCode, reception)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPreApprovalService_List(t *testing.T) {
	svc, companies := newPreApprovalFixture(t)
	ctx := context.Background()
	companyID := upsertTestCompany(t, companies, "ACME", true)
	reception := testUser("reception-1", domain.RoleReception)

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, CreatePreApprovalRequest{
			CompanyCode: "ACME", VisitorName: "Visitor",
			ValidFrom: "2026-09-01", ValidUntil: "2026-09-07",
		}, reception)
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, companyID, 1, 10, reception)
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Pagination.Total)
}
