package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 表计类型白名单
var meterTypes = map[string]bool{
	"electricity": true,
	"water":       true,
	"gas":         true,
}

// MeterService 抄表业务服务
// 用量一律走 decimal 计算，不经过 float64
type MeterService struct {
	meters repository.MetersRepository
	roles  repository.RolesRepository
	logger *zap.Logger

	now func() time.Time
}

func NewMeterService(meters repository.MetersRepository, roles repository.RolesRepository, logger *zap.Logger) *MeterService {
	return &MeterService{meters: meters, roles: roles, logger: logger, now: time.Now}
}

// CreateReadingRequest 抄表录入请求
// reading_value / previous_reading 以字符串传输避免 JSON 浮点精度损失
type CreateReadingRequest struct {
	MeterSerial     string `json:"meter_serial"`
	MeterType       string `json:"meter_type"`
	ReadingValue    string `json:"reading_value"`
	PreviousReading string `json:"previous_reading"` // 可空，缺省取该表计最近一条记录
	ReadingDate     string `json:"reading_date"`     // YYYY-MM-DD，可空=今天
}

// ReadingItem 抄表记录项
type ReadingItem struct {
	ReadingID       string `json:"reading_id"`
	MeterSerial     string `json:"meter_serial"`
	MeterType       string `json:"meter_type"`
	ReadingValue    string `json:"reading_value"`
	PreviousReading string `json:"previous_reading"`
	Consumption     string `json:"consumption"`
	ReadingDate     string `json:"reading_date"`
	RecordedBy      string `json:"recorded_by"`
	IsVerified      bool   `json:"is_verified"`
	VerifiedBy      string `json:"verified_by,omitempty"`
	VerifiedAt      string `json:"verified_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// ListReadingsRequest 抄表查询
type ListReadingsRequest struct {
	MeterType string `json:"meter_type"`
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`
	Limit     int    `json:"limit"`
}

func toReadingItem(r *domain.MeterReading) ReadingItem {
	item := ReadingItem{
		ReadingID:       r.ReadingID,
		MeterSerial:     r.MeterSerial,
		MeterType:       r.MeterType,
		ReadingValue:    r.ReadingValue.String(),
		PreviousReading: r.PreviousReading.String(),
		Consumption:     r.Consumption.String(),
		ReadingDate:     r.ReadingDate.Format(dateLayout),
		RecordedBy:      r.RecordedBy,
		IsVerified:      r.IsVerified,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.VerifiedBy.Valid {
		item.VerifiedBy = r.VerifiedBy.String
	}
	if r.VerifiedAt.Valid {
		item.VerifiedAt = r.VerifiedAt.Time.Format(time.RFC3339)
	}
	return item
}

// parseMetersFilter 解析公共查询参数
func parseMetersFilter(meterType, startDate, endDate string) (repository.MetersFilter, error) {
	filter := repository.MetersFilter{MeterType: meterType}
	if meterType != "" && !meterTypes[meterType] {
		return filter, fmt.Errorf("%w: unknown meter_type %q", domain.ErrValidation, meterType)
	}
	if startDate != "" {
		t, err := time.Parse(dateLayout, startDate)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid start_date", domain.ErrValidation)
		}
		filter.StartDate = &t
	}
	if endDate != "" {
		t, err := time.Parse(dateLayout, endDate)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid end_date", domain.ErrValidation)
		}
		// 含当天
		t = t.Add(24*time.Hour - time.Second)
		filter.EndDate = &t
	}
	return filter, nil
}

// CreateReading 录入抄表记录
// previous_reading 缺省取该表计最近一条记录的读数（首条记录取 0）
// consumption 为负（读数回退）拒绝录入
func (s *MeterService) CreateReading(ctx context.Context, req CreateReadingRequest, user *domain.User) (*ReadingItem, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermMetersCreate) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermMetersCreate)
	}

	if req.MeterSerial == "" {
		return nil, fmt.Errorf("%w: meter_serial is required", domain.ErrValidation)
	}
	if !meterTypes[req.MeterType] {
		return nil, fmt.Errorf("%w: unknown meter_type %q", domain.ErrValidation, req.MeterType)
	}
	readingValue, err := decimal.NewFromString(req.ReadingValue)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid reading_value", domain.ErrValidation)
	}

	var previous decimal.Decimal
	if req.PreviousReading != "" {
		previous, err = decimal.NewFromString(req.PreviousReading)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid previous_reading", domain.ErrValidation)
		}
	} else {
		latest, err := s.meters.GetLatestReading(ctx, req.MeterSerial)
		switch {
		case err == nil:
			previous = latest.ReadingValue
		case errors.Is(err, domain.ErrNotFound):
			previous = decimal.Zero
		default:
			return nil, err
		}
	}

	consumption := readingValue.Sub(previous)
	if consumption.IsNegative() {
		return nil, fmt.Errorf("%w: reading_value %s is below previous reading %s",
			domain.ErrValidation, readingValue, previous)
	}

	readingDate := s.now()
	if req.ReadingDate != "" {
		readingDate, err = time.Parse(dateLayout, req.ReadingDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid reading_date", domain.ErrValidation)
		}
	}

	row := &domain.MeterReading{
		MeterSerial:     req.MeterSerial,
		MeterType:       req.MeterType,
		ReadingValue:    readingValue,
		PreviousReading: previous,
		Consumption:     consumption,
		ReadingDate:     readingDate,
		RecordedBy:      user.UserID,
	}
	readingID, err := s.meters.CreateReading(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("failed to create meter reading: %w", err)
	}

	s.logger.Info("Meter reading recorded",
		zap.String("reading_id", readingID),
		zap.String("meter_serial", req.MeterSerial),
		zap.String("consumption", consumption.String()))
	return s.Get(ctx, readingID)
}

// Get 抄表记录详情
func (s *MeterService) Get(ctx context.Context, readingID string) (*ReadingItem, error) {
	r, err := s.meters.GetReading(ctx, readingID)
	if err != nil {
		return nil, err
	}
	item := toReadingItem(r)
	return &item, nil
}

// List 抄表记录列表
func (s *MeterService) List(ctx context.Context, req ListReadingsRequest, user *domain.User) ([]ReadingItem, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermMetersView) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermMetersView)
	}
	filter, err := parseMetersFilter(req.MeterType, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	readings, err := s.meters.ListReadings(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	items := make([]ReadingItem, 0, len(readings))
	for _, r := range readings {
		items = append(items, toReadingItem(r))
	}
	return items, nil
}

// Verify 核验抄表记录（一次性，条件更新兜底并发重复核验）
func (s *MeterService) Verify(ctx context.Context, readingID string, user *domain.User) (*ReadingItem, error) {
	actor, err := buildActor(ctx, s.roles, user)
	if err != nil {
		return nil, err
	}
	if !actor.HasPermission(domain.PermMetersVerify) {
		return nil, fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, domain.PermMetersVerify)
	}
	if _, err := s.meters.GetReading(ctx, readingID); err != nil {
		return nil, err
	}
	if err := s.meters.VerifyReading(ctx, readingID, user.UserID, s.now()); err != nil {
		return nil, err
	}
	s.logger.Info("Meter reading verified",
		zap.String("reading_id", readingID),
		zap.String("verified_by", user.UserID))
	return s.Get(ctx, readingID)
}
