package repository

import (
	"context"

	"sitepass/internal/domain"
)

// CompaniesRepository 公司Repository接口
type CompaniesRepository interface {
	GetByCode(ctx context.Context, companyCode string) (*domain.Company, error)
	GetByID(ctx context.Context, companyID string) (*domain.Company, error)
	List(ctx context.Context) ([]*domain.Company, error)
	// Upsert 以 company_code 为唯一键 create-or-update
	Upsert(ctx context.Context, c *domain.Company) (string, error)
}
