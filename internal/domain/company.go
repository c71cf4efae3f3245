package domain

import "time"

// Company 入驻公司领域模型（对应 companies 表）
type Company struct {
	CompanyID   string `db:"company_id"`
	CompanyCode string `db:"company_code"` // 唯一，公开签到表单用
	CompanyName string `db:"company_name"`
	// RequireApproval 访客审批开关：false 时访客提交直接 CHECKED_IN（自助通道）
	// 默认 true（与种子数据一致）
	RequireApproval bool      `db:"require_approval"`
	IsActive        bool      `db:"is_active"`
	CreatedAt       time.Time `db:"created_at"`
}
