package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sitepass/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresPreApprovalsRepository 访客预批Repository实现
type PostgresPreApprovalsRepository struct {
	db *sql.DB
}

// NewPostgresPreApprovalsRepository 创建预批Repository
func NewPostgresPreApprovalsRepository(db *sql.DB) *PostgresPreApprovalsRepository {
	return &PostgresPreApprovalsRepository{db: db}
}

var _ PreApprovalsRepository = (*PostgresPreApprovalsRepository)(nil)

const preApprovalColumns = `
	pre_approval_id::text,
	approval_code,
	company_id::text,
	visitor_name,
	status,
	valid_from,
	valid_until,
	created_by::text,
	used_at,
	created_at
`

func scanPreApproval(row interface{ Scan(...any) error }) (*domain.PreApproval, error) {
	var pa domain.PreApproval
	err := row.Scan(
		&pa.PreApprovalID,
		&pa.ApprovalCode,
		&pa.CompanyID,
		&pa.VisitorName,
		&pa.Status,
		&pa.ValidFrom,
		&pa.ValidUntil,
		&pa.CreatedBy,
		&pa.UsedAt,
		&pa.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pa, nil
}

// Create 创建预批
func (r *PostgresPreApprovalsRepository) Create(ctx context.Context, pa *domain.PreApproval) (string, error) {
	if pa.VisitorName == "" {
		return "", fmt.Errorf("%w: visitor_name is required", domain.ErrValidation)
	}
	if !pa.ValidUntil.After(pa.ValidFrom) {
		return "", fmt.Errorf("%w: valid_until must be after valid_from", domain.ErrValidation)
	}

	preApprovalID := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pre_approvals (pre_approval_id, approval_code, company_id, visitor_name, status, valid_from, valid_until, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		preApprovalID,
		pa.ApprovalCode,
		pa.CompanyID,
		pa.VisitorName,
		domain.PreApprovalActive,
		pa.ValidFrom,
		pa.ValidUntil,
		pa.CreatedBy,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", fmt.Errorf("%w: approval_code %s", domain.ErrConflict, pa.ApprovalCode)
		}
		return "", fmt.Errorf("failed to insert pre-approval: %w", err)
	}
	return preApprovalID, nil
}

// GetByCode 按预批码查询
func (r *PostgresPreApprovalsRepository) GetByCode(ctx context.Context, approvalCode string) (*domain.PreApproval, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+preApprovalColumns+` FROM pre_approvals WHERE approval_code = $1`, approvalCode)
	pa, err := scanPreApproval(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: pre-approval %s", domain.ErrNotFound, approvalCode)
		}
		return nil, fmt.Errorf("failed to query pre-approval: %w", err)
	}
	return pa, nil
}

// List 查询公司的预批列表
func (r *PostgresPreApprovalsRepository) List(ctx context.Context, companyID string, page, size int) ([]*domain.PreApproval, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pre_approvals WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pre-approvals: %w", err)
	}

	page, size = clampPage(page, size)
	offset := (page - 1) * size

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+preApprovalColumns+` FROM pre_approvals WHERE company_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		companyID, size, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query pre-approvals: %w", err)
	}
	defer rows.Close()

	pas := []*domain.PreApproval{}
	for rows.Next() {
		pa, err := scanPreApproval(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan pre-approval: %w", err)
		}
		pas = append(pas, pa)
	}
	return pas, total, rows.Err()
}

// MarkUsed 消费预批（条件更新，仅 ACTIVE）
func (r *PostgresPreApprovalsRepository) MarkUsed(ctx context.Context, preApprovalID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pre_approvals SET status = 'USED', used_at = $1 WHERE pre_approval_id = $2 AND status = 'ACTIVE'`,
		at, preApprovalID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark pre-approval used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: pre-approval %s is not active", domain.ErrInvalidTransition, preApprovalID)
	}
	return nil
}

// Cancel 取消预批（条件更新，仅 ACTIVE）
func (r *PostgresPreApprovalsRepository) Cancel(ctx context.Context, preApprovalID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pre_approvals SET status = 'CANCELLED' WHERE pre_approval_id = $1 AND status = 'ACTIVE'`,
		preApprovalID,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel pre-approval: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: pre-approval %s is not active", domain.ErrInvalidTransition, preApprovalID)
	}
	return nil
}
