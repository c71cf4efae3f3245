package repository

import (
	"context"
	"time"

	"sitepass/internal/domain"
)

// VisitorsRepository 访客请求Repository接口
type VisitorsRepository interface {
	CreateRequest(ctx context.Context, req *domain.VisitorRequest) (string, error)
	GetRequest(ctx context.Context, requestID string) (*domain.VisitorRequest, error)
	// GetByRequestNumber 公共轮询接口用（request_number 对外，request_id 不暴露）
	GetByRequestNumber(ctx context.Context, requestNumber string) (*domain.VisitorRequest, error)
	ListRequests(ctx context.Context, filter VisitorsFilter, page, size int) ([]*domain.VisitorRequest, int, error)

	// UpdateStatus 条件更新：当前状态在 from 中才生效，0 行 => ErrInvalidTransition
	// set 中的可选字段随状态一并写入（决策人、签到/签出时间等）
	UpdateStatus(ctx context.Context, requestID string, from []domain.VisitorStatus, to domain.VisitorStatus, set VisitorStatusUpdate) error

	// CountByDay 仪表盘：按天统计提交量
	CountByDay(ctx context.Context, since time.Time) ([]DayCount, error)
}

// VisitorsFilter 访客请求查询过滤器
type VisitorsFilter struct {
	CompanyID string
	Status    string
	Search    string // 模糊搜索 visitor_name / request_number
}

// VisitorStatusUpdate 状态转移时附带写入的字段
type VisitorStatusUpdate struct {
	DecidedBy      *string
	DecisionReason *string
	CheckInTime    *time.Time
	CheckOutTime   *time.Time
}

// DayCount 按天计数
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}
