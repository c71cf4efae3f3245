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
)

// MemoryPreApprovalsRepo 内存预批Repository
type MemoryPreApprovalsRepo struct {
	mu     sync.RWMutex
	items  map[string]domain.PreApproval // preApprovalID -> row
	byCode map[string]string             // approvalCode -> preApprovalID
}

func NewMemoryPreApprovalsRepo() *MemoryPreApprovalsRepo {
	return &MemoryPreApprovalsRepo{
		items:  map[string]domain.PreApproval{},
		byCode: map[string]string{},
	}
}

var _ PreApprovalsRepository = (*MemoryPreApprovalsRepo)(nil)

func (r *MemoryPreApprovalsRepo) Create(_ context.Context, pa *domain.PreApproval) (string, error) {
	if pa.VisitorName == "" {
		return "", fmt.Errorf("%w: visitor_name is required", domain.ErrValidation)
	}
	if !pa.ValidUntil.After(pa.ValidFrom) {
		return "", fmt.Errorf("%w: valid_until must be after valid_from", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[pa.ApprovalCode]; exists {
		return "", fmt.Errorf("%w: approval_code %s", domain.ErrConflict, pa.ApprovalCode)
	}

	item := *pa
	item.PreApprovalID = uuid.NewString()
	item.Status = domain.PreApprovalActive
	item.CreatedAt = time.Now()
	r.items[item.PreApprovalID] = item
	r.byCode[item.ApprovalCode] = item.PreApprovalID
	return item.PreApprovalID, nil
}

func (r *MemoryPreApprovalsRepo) GetByCode(_ context.Context, approvalCode string) (*domain.PreApproval, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[approvalCode]
	if !ok {
		return nil, fmt.Errorf("%w: pre-approval %s", domain.ErrNotFound, approvalCode)
	}
	cp := r.items[id]
	return &cp, nil
}

func (r *MemoryPreApprovalsRepo) List(_ context.Context, companyID string, page, size int) ([]*domain.PreApproval, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*domain.PreApproval{}
	for _, pa := range r.items {
		if companyID != "" && pa.CompanyID != companyID {
			continue
		}
		cp := pa
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

func (r *MemoryPreApprovalsRepo) MarkUsed(_ context.Context, preApprovalID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pa, ok := r.items[preApprovalID]
	if !ok || pa.Status != domain.PreApprovalActive {
		return fmt.Errorf("%w: pre-approval %s is not active", domain.ErrInvalidTransition, preApprovalID)
	}
	pa.Status = domain.PreApprovalUsed
	pa.UsedAt = sql.NullTime{Time: at, Valid: true}
	r.items[preApprovalID] = pa
	return nil
}

func (r *MemoryPreApprovalsRepo) Cancel(_ context.Context, preApprovalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pa, ok := r.items[preApprovalID]
	if !ok || pa.Status != domain.PreApprovalActive {
		return fmt.Errorf("%w: pre-approval %s is not active", domain.ErrInvalidTransition, preApprovalID)
	}
	pa.Status = domain.PreApprovalCancelled
	r.items[preApprovalID] = pa
	return nil
}
