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

// MemoryPermitsRepo 内存许可证Repository（无 DB 时联测/单测用）
// 条件更新语义与 Postgres 实现保持一致
type MemoryPermitsRepo struct {
	mu        sync.RWMutex
	permits   map[string]domain.Permit
	approvals map[string][]domain.PermitApproval // permitID -> rows
}

func NewMemoryPermitsRepo() *MemoryPermitsRepo {
	return &MemoryPermitsRepo{
		permits:   map[string]domain.Permit{},
		approvals: map[string][]domain.PermitApproval{},
	}
}

var _ PermitsRepository = (*MemoryPermitsRepo)(nil)

func (r *MemoryPermitsRepo) CreatePermitWithApprovals(_ context.Context, permit *domain.Permit, approverRoles []string) (string, error) {
	if permit.Title == "" {
		return "", fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(approverRoles) == 0 {
		return "", fmt.Errorf("%w: at least one approver role is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	p := *permit
	p.PermitID = uuid.NewString()
	p.Status = domain.PermitPending
	p.CreatedAt = now
	p.UpdatedAt = now
	r.permits[p.PermitID] = p

	rows := make([]domain.PermitApproval, 0, len(approverRoles))
	for _, role := range approverRoles {
		rows = append(rows, domain.PermitApproval{
			ApprovalID:   uuid.NewString(),
			PermitID:     p.PermitID,
			ApproverRole: role,
			Decision:     domain.DecisionPending,
		})
	}
	r.approvals[p.PermitID] = rows
	return p.PermitID, nil
}

func (r *MemoryPermitsRepo) GetPermit(_ context.Context, permitID string) (*domain.Permit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.permits[permitID]
	if !ok {
		return nil, fmt.Errorf("%w: permit %s", domain.ErrNotFound, permitID)
	}
	cp := p
	return &cp, nil
}

func (r *MemoryPermitsRepo) ListPermits(_ context.Context, filter PermitsFilter, page, size int) ([]*domain.Permit, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*domain.Permit{}
	for _, p := range r.permits {
		if filter.Status != "" && string(p.Status) != filter.Status {
			continue
		}
		if filter.WorkType != "" && p.WorkType != filter.WorkType {
			continue
		}
		if filter.CreatedBy != "" && p.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(filter.Search)) {
			continue
		}
		cp := p
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

func (r *MemoryPermitsRepo) ListApprovals(_ context.Context, permitID string) ([]domain.PermitApproval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.approvals[permitID]
	out := make([]domain.PermitApproval, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].ApproverRole < out[j].ApproverRole })
	return out, nil
}

func (r *MemoryPermitsRepo) DecideApproval(_ context.Context, approvalID string, decision domain.ApprovalDecision, comment, decidedBy string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for permitID, rows := range r.approvals {
		for i := range rows {
			if rows[i].ApprovalID != approvalID {
				continue
			}
			if rows[i].Decision != domain.DecisionPending {
				return fmt.Errorf("%w: approval %s is not pending", domain.ErrInvalidTransition, approvalID)
			}
			rows[i].Decision = decision
			rows[i].Comment = sql.NullString{String: comment, Valid: comment != ""}
			rows[i].ApprovedBy = sql.NullString{String: decidedBy, Valid: true}
			rows[i].ApprovedAt = sql.NullTime{Time: at, Valid: true}
			r.approvals[permitID] = rows
			return nil
		}
	}
	return fmt.Errorf("%w: approval %s", domain.ErrNotFound, approvalID)
}

func (r *MemoryPermitsRepo) UpdatePermitStatus(_ context.Context, permitID string, from []domain.PermitStatus, to domain.PermitStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.permits[permitID]
	if !ok {
		return fmt.Errorf("%w: permit %s not in expected status", domain.ErrInvalidTransition, permitID)
	}
	for _, s := range from {
		if p.Status == s {
			p.Status = to
			p.UpdatedAt = time.Now()
			r.permits[permitID] = p
			return nil
		}
	}
	return fmt.Errorf("%w: permit %s not in expected status", domain.ErrInvalidTransition, permitID)
}

func (r *MemoryPermitsRepo) ResetApprovals(_ context.Context, permitID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.approvals[permitID]
	for i := range rows {
		rows[i].Decision = domain.DecisionPending
		rows[i].Comment = sql.NullString{}
		rows[i].ApprovedBy = sql.NullString{}
		rows[i].ApprovedAt = sql.NullTime{}
	}
	r.approvals[permitID] = rows
	return nil
}

func (r *MemoryPermitsRepo) ExtendPermit(_ context.Context, permitID string, from []domain.PermitStatus, newEndDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.permits[permitID]
	if !ok {
		return fmt.Errorf("%w: permit %s not in expected status", domain.ErrInvalidTransition, permitID)
	}
	for _, s := range from {
		if p.Status == s {
			p.EndDate = newEndDate
			p.UpdatedAt = time.Now()
			r.permits[permitID] = p
			return nil
		}
	}
	return fmt.Errorf("%w: permit %s not in expected status", domain.ErrInvalidTransition, permitID)
}

func (r *MemoryPermitsRepo) CountByStatus(_ context.Context) (map[domain.PermitStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[domain.PermitStatus]int{}
	for _, p := range r.permits {
		counts[p.Status]++
	}
	return counts, nil
}
