package domain

import (
	"database/sql"
	"time"
)

// VisitorStatus 访客请求状态
type VisitorStatus string

const (
	VisitorPending    VisitorStatus = "PENDING"
	VisitorApproved   VisitorStatus = "APPROVED"
	VisitorCheckedIn  VisitorStatus = "CHECKED_IN"
	VisitorCheckedOut VisitorStatus = "CHECKED_OUT"
	VisitorRejected   VisitorStatus = "REJECTED"
	// VisitorExpired 只作为读取时的派生状态，不落库（无后台清扫任务）
	VisitorExpired VisitorStatus = "EXPIRED"
)

// VisitorAction 访客请求操作
type VisitorAction string

const (
	VisitorActionApprove  VisitorAction = "approve"
	VisitorActionReject   VisitorAction = "reject"
	VisitorActionCheckIn  VisitorAction = "checkin"
	VisitorActionCheckOut VisitorAction = "checkout"
)

// VisitorRequest 访客请求/门禁单领域模型（对应 visitor_requests 表）
type VisitorRequest struct {
	RequestID     string         `db:"request_id"`
	RequestNumber string         `db:"request_number"` // 唯一、可读编号，客户端轮询用
	CompanyID     string         `db:"company_id"`
	VisitorName   string         `db:"visitor_name"`
	Phone         string         `db:"phone"`
	Purpose       sql.NullString `db:"purpose"`
	HostName      sql.NullString `db:"host_name"`
	Status        VisitorStatus  `db:"status"`
	// RequiresApproval 提交时从公司配置快照而来
	RequiresApproval bool           `db:"requires_approval"`
	PreApprovalCode  sql.NullString `db:"pre_approval_code"`
	ExpiresAt        sql.NullTime   `db:"expires_at"`
	DecidedBy        sql.NullString `db:"decided_by"`
	DecisionReason   sql.NullString `db:"decision_reason"`
	CheckInTime      sql.NullTime   `db:"check_in_time"`
	CheckOutTime     sql.NullTime   `db:"check_out_time"`
	CreatedAt        time.Time      `db:"created_at"`
}
