package service

import (
	"context"
	"testing"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/repository"
	"sitepass/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 测试公共脚手架：内存Repository + 种子角色

func seededRoles(t *testing.T) *repository.MemoryRolesRepo {
	t.Helper()
	roles := repository.NewMemoryRolesRepo()
	users := repository.NewMemoryUsersRepo()
	_, err := NewSeedService(roles, users, zap.NewNop()).Seed(context.Background())
	require.NoError(t, err)
	return roles
}

func testUser(userID, roleCode string) *domain.User {
	return &domain.User{
		UserID:      userID,
		Account:     userID,
		DisplayName: userID,
		RoleCode:    roleCode,
		IsActive:    true,
	}
}

func testDirectory(t *testing.T, companies *repository.MemoryCompaniesRepo) *CompanyDirectory {
	t.Helper()
	return NewCompanyDirectory(companies, store.NewMemoryKV(), time.Minute, zap.NewNop())
}

// upsertTestCompany 建一个公司并返回 company_id
func upsertTestCompany(t *testing.T, companies *repository.MemoryCompaniesRepo, code string, requireApproval bool) string {
	t.Helper()
	companyID, err := companies.Upsert(context.Background(), &domain.Company{
		CompanyCode:     code,
		CompanyName:     code + " Co.",
		RequireApproval: requireApproval,
		IsActive:        true,
	})
	require.NoError(t, err)
	return companyID
}
