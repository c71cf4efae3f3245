package domain

import "time"

// Role 角色领域模型（对应 roles 表）
// Permissions 以 JSON 数组形式存储在 permissions 列中
type Role struct {
	RoleID      string   `db:"role_id"`
	RoleCode    string   `db:"role_code"` // 唯一，程序引用用（如 "FIREMAN"）
	DisplayName string   `db:"display_name"`
	Description string   `db:"description"`
	Permissions []string `db:"permissions"`
	// IsSystem 种子创建的系统角色，清理脚本不会删除
	IsSystem  bool      `db:"is_system"`
	CreatedAt time.Time `db:"created_at"`
}

// HasPermission 判断角色是否持有指定权限key
func (r *Role) HasPermission(key string) bool {
	for _, p := range r.Permissions {
		if p == key {
			return true
		}
	}
	return false
}

// Permission 权限项（对应 permissions 表）
// Key 为点分格式，如 "permits.approve"
type Permission struct {
	PermissionID string `db:"permission_id"`
	Key          string `db:"key"` // 唯一
	Module       string `db:"module"`
	Action       string `db:"action"`
	Description  string `db:"description"`
}

// 权限key常量
const (
	PermPermitsCreate    = "permits.create"
	PermPermitsView      = "permits.view"
	PermPermitsApprove   = "permits.approve"
	PermPermitsRevoke    = "permits.revoke"
	PermPermitsClose     = "permits.close"
	PermPermitsExtend    = "permits.extend"
	PermPermitsReapprove = "permits.reapprove"

	PermVisitorsView     = "visitors.view"
	PermVisitorsDecide   = "visitors.decide"
	PermVisitorsCheckIn  = "visitors.checkin"
	PermVisitorsCheckOut = "visitors.checkout"

	PermPreApprovalsCreate = "preapprovals.create"
	PermPreApprovalsCancel = "preapprovals.cancel"

	PermMetersCreate = "meters.create"
	PermMetersVerify = "meters.verify"
	PermMetersView   = "meters.view"
	PermMetersExport = "meters.export"

	PermDashboardView = "dashboard.view"

	PermRolesManage     = "roles.manage"
	PermCompaniesManage = "companies.manage"
)

// 系统角色代码
const (
	RoleAdmin     = "ADMIN"
	RoleFireman   = "FIREMAN"
	RoleRequestor = "REQUESTOR"
	RoleEngineer  = "ENGINEER"
	RoleGuard     = "GUARD"
	RoleReception = "RECEPTION"
)
