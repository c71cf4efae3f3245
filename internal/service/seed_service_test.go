package service

import (
	"context"
	"testing"

	"sitepass/internal/domain"
	"sitepass/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedService_Seed(t *testing.T) {
	roles := repository.NewMemoryRolesRepo()
	users := repository.NewMemoryUsersRepo()
	svc := NewSeedService(roles, users, zap.NewNop())
	ctx := context.Background()

	report, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(allPermissionKeys), report.PermissionsUpserted)
	assert.Equal(t, len(DefaultRoles), report.RolesUpserted)
	assert.Equal(t, 1, report.UsersUpserted)
	assert.Zero(t, report.Errors)

	// 角色权限正确落库
	fireman, err := roles.GetRoleByCode(ctx, domain.RoleFireman)
	require.NoError(t, err)
	assert.True(t, fireman.HasPermission(domain.PermPermitsApprove))
	assert.True(t, fireman.HasPermission(domain.PermPermitsReapprove))
	assert.False(t, fireman.HasPermission(domain.PermPermitsCreate))

	admin, err := roles.GetRoleByCode(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admin.Permissions, len(allPermissionKeys))

	// 初始管理员密码为 bcrypt 摘要
	sysadmin, err := users.GetByAccount(ctx, defaultAdminAccount)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, sysadmin.RoleCode)
	assert.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(sysadmin.PasswordHash), []byte(defaultAdminPassword)))
}

func TestSeedService_Seed_Idempotent(t *testing.T) {
	roles := repository.NewMemoryRolesRepo()
	users := repository.NewMemoryUsersRepo()
	svc := NewSeedService(roles, users, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Seed(ctx)
	require.NoError(t, err)

	// 管理员改密码后重跑种子，密码不被重置
	sysadmin, err := users.GetByAccount(ctx, defaultAdminAccount)
	require.NoError(t, err)
	newHash, err := HashPassword("rotated-password")
	require.NoError(t, err)
	sysadmin.PasswordHash = newHash
	_, err = users.Upsert(ctx, sysadmin)
	require.NoError(t, err)

	report, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Errors)

	after, err := users.GetByAccount(ctx, defaultAdminAccount)
	require.NoError(t, err)
	assert.Equal(t, newHash, after.PasswordHash)

	// 角色数不膨胀
	all, err := roles.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultRoles))
}

func TestSeedService_PermissionKeyShape(t *testing.T) {
	// 权限key为 module.action 点分格式
	p := permissionFromKey(domain.PermPermitsApprove)
	assert.Equal(t, "permits", p.Module)
	assert.Equal(t, "approve", p.Action)
}
