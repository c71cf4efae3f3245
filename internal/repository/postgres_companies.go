package repository

import (
	"context"
	"database/sql"
	"fmt"

	"sitepass/internal/domain"

	"github.com/google/uuid"
)

// PostgresCompaniesRepository 公司Repository实现
type PostgresCompaniesRepository struct {
	db *sql.DB
}

// NewPostgresCompaniesRepository 创建公司Repository
func NewPostgresCompaniesRepository(db *sql.DB) *PostgresCompaniesRepository {
	return &PostgresCompaniesRepository{db: db}
}

var _ CompaniesRepository = (*PostgresCompaniesRepository)(nil)

const companyColumns = `
	company_id::text,
	company_code,
	company_name,
	require_approval,
	is_active,
	created_at
`

func scanCompany(row interface{ Scan(...any) error }) (*domain.Company, error) {
	var c domain.Company
	err := row.Scan(
		&c.CompanyID,
		&c.CompanyCode,
		&c.CompanyName,
		&c.RequireApproval,
		&c.IsActive,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByCode 按公司代码查询（公开签到表单入口）
func (r *PostgresCompaniesRepository) GetByCode(ctx context.Context, companyCode string) (*domain.Company, error) {
	if companyCode == "" {
		return nil, fmt.Errorf("%w: company_code is required", domain.ErrValidation)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE company_code = $1`, companyCode)
	c, err := scanCompany(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: company %s", domain.ErrNotFound, companyCode)
		}
		return nil, fmt.Errorf("failed to query company: %w", err)
	}
	return c, nil
}

// GetByID 按ID查询
func (r *PostgresCompaniesRepository) GetByID(ctx context.Context, companyID string) (*domain.Company, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE company_id = $1`, companyID)
	c, err := scanCompany(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: company %s", domain.ErrNotFound, companyID)
		}
		return nil, fmt.Errorf("failed to query company: %w", err)
	}
	return c, nil
}

// List 查询全部公司（公司目录缓存的数据源）
func (r *PostgresCompaniesRepository) List(ctx context.Context) ([]*domain.Company, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY company_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	companies := []*domain.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Upsert 以 company_code 为唯一键 create-or-update
func (r *PostgresCompaniesRepository) Upsert(ctx context.Context, c *domain.Company) (string, error) {
	if c.CompanyCode == "" {
		return "", fmt.Errorf("%w: company_code is required", domain.ErrValidation)
	}

	companyID := c.CompanyID
	if companyID == "" {
		companyID = uuid.NewString()
	}

	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO companies (company_id, company_code, company_name, require_approval, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (company_code)
		 DO UPDATE SET company_name = EXCLUDED.company_name,
		               require_approval = EXCLUDED.require_approval,
		               is_active = EXCLUDED.is_active
		 RETURNING company_id::text`,
		companyID, c.CompanyCode, c.CompanyName, c.RequireApproval, c.IsActive,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert company: %w", err)
	}
	return id, nil
}
