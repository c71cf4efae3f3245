package domain

import (
	"database/sql"
	"time"
)

// User 用户领域模型（对应 users 表）
// PasswordHash 为 bcrypt 摘要
type User struct {
	UserID       string         `db:"user_id"`
	Account      string         `db:"account"` // 唯一
	DisplayName  string         `db:"display_name"`
	PasswordHash string         `db:"password_hash"`
	RoleCode     string         `db:"role_code"`
	CompanyID    sql.NullString `db:"company_id"` // 公司用户（VMS 审批人）才有
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
}
