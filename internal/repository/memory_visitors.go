package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sitepass/internal/domain"

	"github.com/google/uuid"
)

// MemoryVisitorsRepo 内存访客请求Repository
type MemoryVisitorsRepo struct {
	mu       sync.RWMutex
	requests map[string]domain.VisitorRequest // requestID -> row
	byNumber map[string]string                // requestNumber -> requestID
}

func NewMemoryVisitorsRepo() *MemoryVisitorsRepo {
	return &MemoryVisitorsRepo{
		requests: map[string]domain.VisitorRequest{},
		byNumber: map[string]string{},
	}
}

var _ VisitorsRepository = (*MemoryVisitorsRepo)(nil)

func (r *MemoryVisitorsRepo) CreateRequest(_ context.Context, req *domain.VisitorRequest) (string, error) {
	if req.VisitorName == "" {
		return "", fmt.Errorf("%w: visitor_name is required", domain.ErrValidation)
	}
	if req.Phone == "" {
		return "", fmt.Errorf("%w: phone is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[req.RequestNumber]; exists {
		return "", fmt.Errorf("%w: request_number %s", domain.ErrConflict, req.RequestNumber)
	}

	v := *req
	v.RequestID = uuid.NewString()
	v.CreatedAt = time.Now()
	r.requests[v.RequestID] = v
	r.byNumber[v.RequestNumber] = v.RequestID
	return v.RequestID, nil
}

func (r *MemoryVisitorsRepo) GetRequest(_ context.Context, requestID string) (*domain.VisitorRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.requests[requestID]
	if !ok {
		return nil, fmt.Errorf("%w: visitor request %s", domain.ErrNotFound, requestID)
	}
	cp := v
	return &cp, nil
}

func (r *MemoryVisitorsRepo) GetByRequestNumber(_ context.Context, requestNumber string) (*domain.VisitorRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byNumber[requestNumber]
	if !ok {
		return nil, fmt.Errorf("%w: visitor request %s", domain.ErrNotFound, requestNumber)
	}
	cp := r.requests[id]
	return &cp, nil
}

func (r *MemoryVisitorsRepo) ListRequests(_ context.Context, filter VisitorsFilter, page, size int) ([]*domain.VisitorRequest, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*domain.VisitorRequest{}
	for _, v := range r.requests {
		if filter.CompanyID != "" && v.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Status != "" && string(v.Status) != filter.Status {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(v.VisitorName), needle) &&
				!strings.Contains(strings.ToLower(v.RequestNumber), needle) {
				continue
			}
		}
		cp := v
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	page, size = clampPage(page, size)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryVisitorsRepo) UpdateStatus(_ context.Context, requestID string, from []domain.VisitorStatus, to domain.VisitorStatus, set VisitorStatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.requests[requestID]
	if !ok {
		return fmt.Errorf("%w: visitor request %s not in expected status", domain.ErrInvalidTransition, requestID)
	}

	matched := false
	for _, s := range from {
		if v.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("%w: visitor request %s not in expected status", domain.ErrInvalidTransition, requestID)
	}

	v.Status = to
	if set.DecidedBy != nil {
		v.DecidedBy = sql.NullString{String: *set.DecidedBy, Valid: true}
	}
	if set.DecisionReason != nil {
		v.DecisionReason = sql.NullString{String: *set.DecisionReason, Valid: true}
	}
	if set.CheckInTime != nil {
		v.CheckInTime = sql.NullTime{Time: *set.CheckInTime, Valid: true}
	}
	if set.CheckOutTime != nil {
		v.CheckOutTime = sql.NullTime{Time: *set.CheckOutTime, Valid: true}
	}
	r.requests[requestID] = v
	return nil
}

func (r *MemoryVisitorsRepo) CountByDay(_ context.Context, since time.Time) ([]DayCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byDay := map[time.Time]int{}
	for _, v := range r.requests {
		if v.CreatedAt.Before(since) {
			continue
		}
		day := v.CreatedAt.Truncate(24 * time.Hour)
		byDay[day]++
	}

	counts := make([]DayCount, 0, len(byDay))
	for day, c := range byDay {
		counts = append(counts, DayCount{Day: day, Count: c})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Day.Before(counts[j].Day) })
	return counts, nil
}
