package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sitepass/internal/domain"

	"github.com/google/uuid"
)

// MemoryRolesRepo 内存角色/权限Repository
type MemoryRolesRepo struct {
	mu    sync.RWMutex
	roles map[string]domain.Role       // roleCode -> role
	perms map[string]domain.Permission // key -> permission
}

func NewMemoryRolesRepo() *MemoryRolesRepo {
	return &MemoryRolesRepo{
		roles: map[string]domain.Role{},
		perms: map[string]domain.Permission{},
	}
}

var _ RolesRepository = (*MemoryRolesRepo)(nil)

func (r *MemoryRolesRepo) GetRoleByCode(_ context.Context, roleCode string) (*domain.Role, error) {
	if roleCode == "" {
		return nil, fmt.Errorf("%w: role_code is required", domain.ErrValidation)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[roleCode]
	if !ok {
		return nil, fmt.Errorf("%w: role %s", domain.ErrNotFound, roleCode)
	}
	cp := role
	cp.Permissions = append([]string(nil), role.Permissions...)
	return &cp, nil
}

func (r *MemoryRolesRepo) ListRoles(_ context.Context) ([]*domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Role, 0, len(r.roles))
	for _, role := range r.roles {
		cp := role
		cp.Permissions = append([]string(nil), role.Permissions...)
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RoleCode < all[j].RoleCode })
	return all, nil
}

func (r *MemoryRolesRepo) UpsertRole(_ context.Context, role *domain.Role) error {
	if role.RoleCode == "" {
		return fmt.Errorf("%w: role_code is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item := *role
	item.Permissions = append([]string(nil), role.Permissions...)
	if existing, ok := r.roles[role.RoleCode]; ok {
		item.RoleID = existing.RoleID
		item.CreatedAt = existing.CreatedAt
	} else {
		if item.RoleID == "" {
			item.RoleID = uuid.NewString()
		}
		item.CreatedAt = time.Now()
	}
	r.roles[role.RoleCode] = item
	return nil
}

func (r *MemoryRolesRepo) ListPermissions(_ context.Context) ([]*domain.Permission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Permission, 0, len(r.perms))
	for _, p := range r.perms {
		cp := p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })
	return all, nil
}

func (r *MemoryRolesRepo) UpsertPermission(_ context.Context, perm *domain.Permission) error {
	if perm.Key == "" {
		return fmt.Errorf("%w: permission key is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item := *perm
	if existing, ok := r.perms[perm.Key]; ok {
		item.PermissionID = existing.PermissionID
	} else if item.PermissionID == "" {
		item.PermissionID = uuid.NewString()
	}
	r.perms[perm.Key] = item
	return nil
}
