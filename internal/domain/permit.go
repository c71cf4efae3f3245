package domain

import (
	"database/sql"
	"time"
)

// PermitStatus 工作许可证状态
type PermitStatus string

const (
	PermitPending  PermitStatus = "PENDING"
	PermitApproved PermitStatus = "APPROVED"
	PermitRejected PermitStatus = "REJECTED"
	PermitRevoked  PermitStatus = "REVOKED"
	PermitClosed   PermitStatus = "CLOSED"
	PermitExpired  PermitStatus = "EXPIRED"
)

// PermitAction 许可证操作
type PermitAction string

const (
	PermitActionApprove   PermitAction = "approve"
	PermitActionReject    PermitAction = "reject"
	PermitActionRevoke    PermitAction = "revoke"
	PermitActionClose     PermitAction = "close"
	PermitActionExtend    PermitAction = "extend"
	PermitActionReapprove PermitAction = "reapprove"
)

// ApprovalDecision 审批决定
type ApprovalDecision string

const (
	DecisionPending  ApprovalDecision = "PENDING"
	DecisionApproved ApprovalDecision = "APPROVED"
	DecisionRejected ApprovalDecision = "REJECTED"
)

// Permit 工作许可证领域模型（对应 permits 表）
type Permit struct {
	PermitID    string       `db:"permit_id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	WorkType    string       `db:"work_type"`
	Location    string       `db:"location"`
	Status      PermitStatus `db:"status"`
	Priority    string       `db:"priority"`
	CreatedBy   string       `db:"created_by"` // users.user_id
	StartDate   time.Time    `db:"start_date"`
	EndDate     time.Time    `db:"end_date"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// PermitApproval 许可证审批行（对应 permit_approvals 表）
// 创建许可证时按所需审批角色各生成一行，只有持有该角色的用户可以改写
type PermitApproval struct {
	ApprovalID   string           `db:"approval_id"`
	PermitID     string           `db:"permit_id"`
	ApproverRole string           `db:"approver_role"` // roles.role_code
	Decision     ApprovalDecision `db:"decision"`
	Comment      sql.NullString   `db:"comment"`
	ApprovedBy   sql.NullString   `db:"approved_by"`
	ApprovedAt   sql.NullTime     `db:"approved_at"`
}
