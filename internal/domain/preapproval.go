package domain

import (
	"database/sql"
	"time"
)

// PreApprovalStatus 预批状态
type PreApprovalStatus string

const (
	PreApprovalActive    PreApprovalStatus = "ACTIVE"
	PreApprovalUsed      PreApprovalStatus = "USED"
	PreApprovalCancelled PreApprovalStatus = "CANCELLED"
	// PreApprovalExpired 派生状态：now > valid_until 时读取为 EXPIRED，不落库
	PreApprovalExpired PreApprovalStatus = "EXPIRED"
)

// PreApproval 访客预批领域模型（对应 pre_approvals 表）
// 公司用户提前创建，实际到访签到时消费（USED）
type PreApproval struct {
	PreApprovalID string            `db:"pre_approval_id"`
	ApprovalCode  string            `db:"approval_code"` // 唯一
	CompanyID     string            `db:"company_id"`
	VisitorName   string            `db:"visitor_name"`
	Status        PreApprovalStatus `db:"status"`
	ValidFrom     time.Time         `db:"valid_from"`
	ValidUntil    time.Time         `db:"valid_until"`
	CreatedBy     string            `db:"created_by"`
	UsedAt        sql.NullTime      `db:"used_at"`
	CreatedAt     time.Time         `db:"created_at"`
}
