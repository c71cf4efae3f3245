package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"sitepass/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryMetersRepo 内存抄表Repository
type MemoryMetersRepo struct {
	mu       sync.RWMutex
	readings map[string]domain.MeterReading
}

func NewMemoryMetersRepo() *MemoryMetersRepo {
	return &MemoryMetersRepo{readings: map[string]domain.MeterReading{}}
}

var _ MetersRepository = (*MemoryMetersRepo)(nil)

func (r *MemoryMetersRepo) CreateReading(_ context.Context, m *domain.MeterReading) (string, error) {
	if m.MeterSerial == "" {
		return "", fmt.Errorf("%w: meter_serial is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item := *m
	item.ReadingID = uuid.NewString()
	item.CreatedAt = time.Now()
	r.readings[item.ReadingID] = item
	return item.ReadingID, nil
}

func (r *MemoryMetersRepo) GetReading(_ context.Context, readingID string) (*domain.MeterReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.readings[readingID]
	if !ok {
		return nil, fmt.Errorf("%w: meter reading %s", domain.ErrNotFound, readingID)
	}
	cp := m
	return &cp, nil
}

func (r *MemoryMetersRepo) GetLatestReading(_ context.Context, meterSerial string) (*domain.MeterReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.MeterReading
	for _, m := range r.readings {
		if m.MeterSerial != meterSerial {
			continue
		}
		cp := m
		if latest == nil || cp.ReadingDate.After(latest.ReadingDate) {
			latest = &cp
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no readings for meter %s", domain.ErrNotFound, meterSerial)
	}
	return latest, nil
}

func matchMetersFilter(m *domain.MeterReading, filter MetersFilter) bool {
	if filter.MeterType != "" && m.MeterType != filter.MeterType {
		return false
	}
	if filter.StartDate != nil && m.ReadingDate.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && m.ReadingDate.After(*filter.EndDate) {
		return false
	}
	return true
}

func (r *MemoryMetersRepo) ListReadings(_ context.Context, filter MetersFilter, limit int) ([]*domain.MeterReading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*domain.MeterReading{}
	for _, m := range r.readings {
		cp := m
		if !matchMetersFilter(&cp, filter) {
			continue
		}
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ReadingDate.After(all[j].ReadingDate) })

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryMetersRepo) VerifyReading(_ context.Context, readingID, verifiedBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.readings[readingID]
	if !ok || m.IsVerified {
		return fmt.Errorf("%w: meter reading %s already verified", domain.ErrInvalidTransition, readingID)
	}
	m.IsVerified = true
	m.VerifiedBy = sql.NullString{String: verifiedBy, Valid: true}
	m.VerifiedAt = sql.NullTime{Time: at, Valid: true}
	r.readings[readingID] = m
	return nil
}

func (r *MemoryMetersRepo) AggregateByType(_ context.Context, filter MetersFilter) ([]MeterAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type agg struct {
		count int
		total decimal.Decimal
	}
	byType := map[string]*agg{}
	for _, m := range r.readings {
		cp := m
		if !matchMetersFilter(&cp, filter) {
			continue
		}
		a, ok := byType[m.MeterType]
		if !ok {
			a = &agg{}
			byType[m.MeterType] = a
		}
		a.count++
		a.total = a.total.Add(m.Consumption)
	}

	aggs := make([]MeterAggregate, 0, len(byType))
	for meterType, a := range byType {
		avg := decimal.Zero
		if a.count > 0 {
			avg = a.total.Div(decimal.NewFromInt(int64(a.count)))
		}
		aggs = append(aggs, MeterAggregate{
			MeterType: meterType,
			Count:     a.count,
			Total:     a.total,
			Average:   avg,
		})
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].MeterType < aggs[j].MeterType })
	return aggs, nil
}
