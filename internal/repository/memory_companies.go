package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sitepass/internal/domain"

	"github.com/google/uuid"
)

// MemoryCompaniesRepo 内存公司Repository
type MemoryCompaniesRepo struct {
	mu     sync.RWMutex
	byCode map[string]domain.Company
}

func NewMemoryCompaniesRepo() *MemoryCompaniesRepo {
	return &MemoryCompaniesRepo{byCode: map[string]domain.Company{}}
}

var _ CompaniesRepository = (*MemoryCompaniesRepo)(nil)

func (r *MemoryCompaniesRepo) GetByCode(_ context.Context, companyCode string) (*domain.Company, error) {
	if companyCode == "" {
		return nil, fmt.Errorf("%w: company_code is required", domain.ErrValidation)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byCode[companyCode]
	if !ok {
		return nil, fmt.Errorf("%w: company %s", domain.ErrNotFound, companyCode)
	}
	cp := c
	return &cp, nil
}

func (r *MemoryCompaniesRepo) GetByID(_ context.Context, companyID string) (*domain.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.byCode {
		if c.CompanyID == companyID {
			cp := c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: company %s", domain.ErrNotFound, companyID)
}

func (r *MemoryCompaniesRepo) List(_ context.Context) ([]*domain.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Company, 0, len(r.byCode))
	for _, c := range r.byCode {
		cp := c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CompanyName < all[j].CompanyName })
	return all, nil
}

func (r *MemoryCompaniesRepo) Upsert(_ context.Context, c *domain.Company) (string, error) {
	if c.CompanyCode == "" {
		return "", fmt.Errorf("%w: company_code is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item := *c
	if existing, ok := r.byCode[c.CompanyCode]; ok {
		item.CompanyID = existing.CompanyID
		item.CreatedAt = existing.CreatedAt
	} else {
		if item.CompanyID == "" {
			item.CompanyID = uuid.NewString()
		}
		item.CreatedAt = time.Now()
	}
	r.byCode[c.CompanyCode] = item
	return item.CompanyID, nil
}
