package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sitepass/internal/domain"

	"github.com/google/uuid"
)

// PostgresRolesRepository 角色/权限Repository实现
// permissions 列为 JSONB 数组，marshal/unmarshal 在这一层完成
type PostgresRolesRepository struct {
	db *sql.DB
}

// NewPostgresRolesRepository 创建角色Repository
func NewPostgresRolesRepository(db *sql.DB) *PostgresRolesRepository {
	return &PostgresRolesRepository{db: db}
}

var _ RolesRepository = (*PostgresRolesRepository)(nil)

func scanRole(row interface{ Scan(...any) error }) (*domain.Role, error) {
	var role domain.Role
	var permsJSON []byte
	err := row.Scan(
		&role.RoleID,
		&role.RoleCode,
		&role.DisplayName,
		&role.Description,
		&permsJSON,
		&role.IsSystem,
		&role.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(permsJSON) > 0 {
		if err := json.Unmarshal(permsJSON, &role.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}
	return &role, nil
}

// GetRoleByCode 按 role_code 查询角色
func (r *PostgresRolesRepository) GetRoleByCode(ctx context.Context, roleCode string) (*domain.Role, error) {
	if roleCode == "" {
		return nil, fmt.Errorf("%w: role_code is required", domain.ErrValidation)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT role_id::text, role_code, display_name, description, permissions, is_system, created_at
		 FROM roles WHERE role_code = $1`,
		roleCode,
	)
	role, err := scanRole(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: role %s", domain.ErrNotFound, roleCode)
		}
		return nil, fmt.Errorf("failed to query role: %w", err)
	}
	return role, nil
}

// ListRoles 查询全部角色
func (r *PostgresRolesRepository) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_id::text, role_code, display_name, description, permissions, is_system, created_at
		 FROM roles ORDER BY is_system DESC, role_code ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	roles := []*domain.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// UpsertRole 以 role_code 为唯一键 create-or-update（幂等种子）
func (r *PostgresRolesRepository) UpsertRole(ctx context.Context, role *domain.Role) error {
	if role.RoleCode == "" {
		return fmt.Errorf("%w: role_code is required", domain.ErrValidation)
	}

	permsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	roleID := role.RoleID
	if roleID == "" {
		roleID = uuid.NewString()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO roles (role_id, role_code, display_name, description, permissions, is_system)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (role_code)
		 DO UPDATE SET display_name = EXCLUDED.display_name,
		               description = EXCLUDED.description,
		               permissions = EXCLUDED.permissions,
		               is_system = EXCLUDED.is_system`,
		roleID, role.RoleCode, role.DisplayName, role.Description, permsJSON, role.IsSystem,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert role: %w", err)
	}
	return nil
}

// ListPermissions 查询全部权限项
func (r *PostgresRolesRepository) ListPermissions(ctx context.Context) ([]*domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT permission_id::text, key, module, action, description FROM permissions ORDER BY key ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	perms := []*domain.Permission{}
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.PermissionID, &p.Key, &p.Module, &p.Action, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, &p)
	}
	return perms, rows.Err()
}

// UpsertPermission 以 key 为唯一键 create-or-update（幂等种子）
func (r *PostgresRolesRepository) UpsertPermission(ctx context.Context, perm *domain.Permission) error {
	if perm.Key == "" {
		return fmt.Errorf("%w: permission key is required", domain.ErrValidation)
	}

	permissionID := perm.PermissionID
	if permissionID == "" {
		permissionID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO permissions (permission_id, key, module, action, description)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (key)
		 DO UPDATE SET module = EXCLUDED.module,
		               action = EXCLUDED.action,
		               description = EXCLUDED.description`,
		permissionID, perm.Key, perm.Module, perm.Action, perm.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert permission: %w", err)
	}
	return nil
}
