package repository

import (
	"context"
	"time"

	"sitepass/internal/domain"
)

// PreApprovalsRepository 访客预批Repository接口
type PreApprovalsRepository interface {
	Create(ctx context.Context, pa *domain.PreApproval) (string, error)
	GetByCode(ctx context.Context, approvalCode string) (*domain.PreApproval, error)
	List(ctx context.Context, companyID string, page, size int) ([]*domain.PreApproval, int, error)

	// MarkUsed 条件更新：仅 ACTIVE 可消费，0 行 => ErrInvalidTransition
	MarkUsed(ctx context.Context, preApprovalID string, at time.Time) error

	// Cancel 条件更新：仅 ACTIVE 可取消
	Cancel(ctx context.Context, preApprovalID string) error
}
