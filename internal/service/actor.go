package service

import (
	"context"
	"fmt"

	"sitepass/internal/domain"
	"sitepass/internal/repository"
	"sitepass/internal/workflow"
)

// buildActor 从用户角色加载权限集，构造工作流主体
func buildActor(ctx context.Context, roles repository.RolesRepository, user *domain.User) (workflow.Actor, error) {
	role, err := roles.GetRoleByCode(ctx, user.RoleCode)
	if err != nil {
		return workflow.Actor{}, fmt.Errorf("%w: unknown role %s", domain.ErrUnauthorized, user.RoleCode)
	}
	return workflow.Actor{
		UserID:      user.UserID,
		RoleCode:    role.RoleCode,
		Permissions: role.Permissions,
	}, nil
}
