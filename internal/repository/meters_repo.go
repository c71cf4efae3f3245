package repository

import (
	"context"
	"time"

	"sitepass/internal/domain"

	"github.com/shopspring/decimal"
)

// MetersRepository 抄表记录Repository接口
type MetersRepository interface {
	CreateReading(ctx context.Context, r *domain.MeterReading) (string, error)
	GetReading(ctx context.Context, readingID string) (*domain.MeterReading, error)
	// GetLatestReading 该表计最近一条记录（previous_reading 自动带出）
	// 无记录时返回 domain.ErrNotFound
	GetLatestReading(ctx context.Context, meterSerial string) (*domain.MeterReading, error)
	ListReadings(ctx context.Context, filter MetersFilter, limit int) ([]*domain.MeterReading, error)

	// VerifyReading 条件更新：仅 is_verified=false 可核验（核验只发生一次）
	VerifyReading(ctx context.Context, readingID, verifiedBy string, at time.Time) error

	// AggregateByType 按表计类型分组：count / sum / avg（consumption）
	AggregateByType(ctx context.Context, filter MetersFilter) ([]MeterAggregate, error)
}

// MetersFilter 抄表查询过滤器
type MetersFilter struct {
	MeterType string
	StartDate *time.Time
	EndDate   *time.Time
}

// MeterAggregate 分组聚合结果
type MeterAggregate struct {
	MeterType string          `json:"meter_type"`
	Count     int             `json:"count"`
	Total     decimal.Decimal `json:"total"`
	Average   decimal.Decimal `json:"average"`
}
