package service

import (
	"context"
	"fmt"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/repository"

	"go.uber.org/zap"
)

// DashboardService 仪表盘聚合
type DashboardService struct {
	permits  repository.PermitsRepository
	visitors repository.VisitorsRepository
	meters   repository.MetersRepository
	roles    repository.RolesRepository
	logger   *zap.Logger

	now func() time.Time
}

func NewDashboardService(
	permits repository.PermitsRepository,
	visitors repository.VisitorsRepository,
	meters repository.MetersRepository,
	roles repository.RolesRepository,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		permits:  permits,
		visitors: visitors,
		meters:   meters,
		roles:    roles,
		logger:   logger,
		now:      time.Now,
	}
}

// VisitorDayCount 按天访客提交量
type VisitorDayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// MeterTypeSummary 按表计类型的用量汇总
type MeterTypeSummary struct {
	MeterType string `json:"meter_type"`
	Count     int    `json:"count"`
	Total     string `json:"total"`
	Average   string `json:"average"`
}

// DashboardSummary 仪表盘汇总响应
type DashboardSummary struct {
	PermitsByStatus  map[string]int     `json:"permits_by_status"`
	VisitorsByDay    []VisitorDayCount  `json:"visitors_by_day"`
	MeterConsumption []MeterTypeSummary `json:"meter_consumption"`
}

// Summary 仪表盘汇总：许可证状态分布 + 最近 7 天访客量 + 表计用量聚合
func (s *DashboardService) Summary(ctx context.Context, user *domain.User) (*DashboardSummary, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermDashboardView) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermDashboardView)
	}

	permitCounts, err := s.permits.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count permits: %w", err)
	}
	byStatus := make(map[string]int, len(permitCounts))
	for status, n := range permitCounts {
		byStatus[string(status)] = n
	}

	since := s.now().AddDate(0, 0, -7)
	dayCounts, err := s.visitors.CountByDay(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count visitors: %w", err)
	}
	visitorsByDay := make([]VisitorDayCount, 0, len(dayCounts))
	for _, dc := range dayCounts {
		visitorsByDay = append(visitorsByDay, VisitorDayCount{
			Day:   dc.Day.Format(dateLayout),
			Count: dc.Count,
		})
	}

	aggregates, err := s.meters.AggregateByType(ctx, repository.MetersFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate meters: %w", err)
	}
	consumption := make([]MeterTypeSummary, 0, len(aggregates))
	for _, agg := range aggregates {
		consumption = append(consumption, MeterTypeSummary{
			MeterType: agg.MeterType,
			Count:     agg.Count,
			Total:     agg.Total.String(),
			Average:   agg.Average.String(),
		})
	}

	return &DashboardSummary{
		PermitsByStatus:  byStatus,
		VisitorsByDay:    visitorsByDay,
		MeterConsumption: consumption,
	}, nil
}
