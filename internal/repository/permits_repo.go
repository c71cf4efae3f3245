package repository

import (
	"context"
	"time"

	"sitepass/internal/domain"
)

// PermitsRepository 许可证Repository接口
// Repository 层只做数据访问与条件更新，业务规则在 Service/workflow 层
type PermitsRepository interface {
	// CreatePermitWithApprovals 创建许可证并按所需审批角色生成 PENDING 审批行（单事务）
	CreatePermitWithApprovals(ctx context.Context, permit *domain.Permit, approverRoles []string) (string, error)

	GetPermit(ctx context.Context, permitID string) (*domain.Permit, error)
	ListPermits(ctx context.Context, filter PermitsFilter, page, size int) ([]*domain.Permit, int, error)
	ListApprovals(ctx context.Context, permitID string) ([]domain.PermitApproval, error)

	// DecideApproval 条件更新：仅 decision='PENDING' 的行可写，0 行 => ErrInvalidTransition
	DecideApproval(ctx context.Context, approvalID string, decision domain.ApprovalDecision, comment, decidedBy string, at time.Time) error

	// UpdatePermitStatus 条件更新：当前状态在 from 中才生效，0 行 => ErrInvalidTransition
	UpdatePermitStatus(ctx context.Context, permitID string, from []domain.PermitStatus, to domain.PermitStatus) error

	// ResetApprovals 全部审批行复位为 PENDING（reapprove 用）
	ResetApprovals(ctx context.Context, permitID string) error

	// ExtendPermit 延长 end_date，不改状态；条件同 UpdatePermitStatus
	ExtendPermit(ctx context.Context, permitID string, from []domain.PermitStatus, newEndDate time.Time) error

	// CountByStatus 仪表盘聚合
	CountByStatus(ctx context.Context) (map[domain.PermitStatus]int, error)
}

// PermitsFilter 许可证查询过滤器
type PermitsFilter struct {
	Status    string
	WorkType  string
	CreatedBy string
	Search    string // 模糊搜索 title
}
