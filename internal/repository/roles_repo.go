package repository

import (
	"context"

	"sitepass/internal/domain"
)

// RolesRepository 角色/权限Repository接口
// Upsert 系列以唯一键（role_code / key）为准，供声明式种子重复执行
type RolesRepository interface {
	GetRoleByCode(ctx context.Context, roleCode string) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	UpsertRole(ctx context.Context, role *domain.Role) error

	ListPermissions(ctx context.Context) ([]*domain.Permission, error)
	UpsertPermission(ctx context.Context, perm *domain.Permission) error
}
