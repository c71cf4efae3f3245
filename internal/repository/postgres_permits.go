package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sitepass/internal/domain"

	"github.com/google/uuid"
)

// PostgresPermitsRepository 许可证Repository实现
type PostgresPermitsRepository struct {
	db *sql.DB
}

// NewPostgresPermitsRepository 创建许可证Repository
func NewPostgresPermitsRepository(db *sql.DB) *PostgresPermitsRepository {
	return &PostgresPermitsRepository{db: db}
}

// 确保实现了接口
var _ PermitsRepository = (*PostgresPermitsRepository)(nil)

const permitColumns = `
	permit_id::text,
	title,
	description,
	work_type,
	location,
	status,
	priority,
	created_by::text,
	start_date,
	end_date,
	created_at,
	updated_at
`

func scanPermit(row interface{ Scan(...any) error }) (*domain.Permit, error) {
	var p domain.Permit
	err := row.Scan(
		&p.PermitID,
		&p.Title,
		&p.Description,
		&p.WorkType,
		&p.Location,
		&p.Status,
		&p.Priority,
		&p.CreatedBy,
		&p.StartDate,
		&p.EndDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePermitWithApprovals 创建许可证 + 审批行（单事务）
func (r *PostgresPermitsRepository) CreatePermitWithApprovals(ctx context.Context, permit *domain.Permit, approverRoles []string) (string, error) {
	if permit.Title == "" {
		return "", fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if len(approverRoles) == 0 {
		return "", fmt.Errorf("%w: at least one approver role is required", domain.ErrValidation)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	permitID := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO permits (permit_id, title, description, work_type, location, status, priority, created_by, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		permitID,
		permit.Title,
		permit.Description,
		permit.WorkType,
		permit.Location,
		domain.PermitPending,
		permit.Priority,
		permit.CreatedBy,
		permit.StartDate,
		permit.EndDate,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert permit: %w", err)
	}

	for _, role := range approverRoles {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO permit_approvals (approval_id, permit_id, approver_role, decision)
			 VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), permitID, role, domain.DecisionPending,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert approval row for role %s: %w", role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return permitID, nil
}

// GetPermit 查询单个许可证
func (r *PostgresPermitsRepository) GetPermit(ctx context.Context, permitID string) (*domain.Permit, error) {
	if permitID == "" {
		return nil, fmt.Errorf("%w: permit_id is required", domain.ErrValidation)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+permitColumns+` FROM permits WHERE permit_id = $1`, permitID)
	p, err := scanPermit(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: permit %s", domain.ErrNotFound, permitID)
		}
		return nil, fmt.Errorf("failed to query permit: %w", err)
	}
	return p, nil
}

// ListPermits 查询许可证列表，支持过滤和分页
func (r *PostgresPermitsRepository) ListPermits(ctx context.Context, filter PermitsFilter, page, size int) ([]*domain.Permit, int, error) {
	where := []string{}
	args := []any{}
	argN := 1

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, filter.Status)
		argN++
	}
	if filter.WorkType != "" {
		where = append(where, fmt.Sprintf("work_type = $%d", argN))
		args = append(args, filter.WorkType)
		argN++
	}
	if filter.CreatedBy != "" {
		where = append(where, fmt.Sprintf("created_by = $%d", argN))
		args = append(args, filter.CreatedBy)
		argN++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("title ILIKE $%d", argN))
		args = append(args, "%"+filter.Search+"%")
		argN++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM permits `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count permits: %w", err)
	}

	page, size = clampPage(page, size)
	offset := (page - 1) * size

	query := `SELECT ` + permitColumns + ` FROM permits ` + whereClause +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argN, argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query permits: %w", err)
	}
	defer rows.Close()

	permits := []*domain.Permit{}
	for rows.Next() {
		p, err := scanPermit(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan permit: %w", err)
		}
		permits = append(permits, p)
	}
	return permits, total, rows.Err()
}

// ListApprovals 查询许可证的全部审批行
func (r *PostgresPermitsRepository) ListApprovals(ctx context.Context, permitID string) ([]domain.PermitApproval, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT approval_id::text, permit_id::text, approver_role, decision, comment, approved_by, approved_at
		 FROM permit_approvals
		 WHERE permit_id = $1
		 ORDER BY approver_role ASC`,
		permitID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	approvals := []domain.PermitApproval{}
	for rows.Next() {
		var a domain.PermitApproval
		if err := rows.Scan(&a.ApprovalID, &a.PermitID, &a.ApproverRole, &a.Decision, &a.Comment, &a.ApprovedBy, &a.ApprovedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

// DecideApproval 条件更新审批行
// WHERE decision = 'PENDING' 保证同一行不会被两个审批人先后改写
func (r *PostgresPermitsRepository) DecideApproval(ctx context.Context, approvalID string, decision domain.ApprovalDecision, comment, decidedBy string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE permit_approvals
		 SET decision = $1, comment = $2, approved_by = $3, approved_at = $4
		 WHERE approval_id = $5 AND decision = 'PENDING'`,
		decision, comment, decidedBy, at, approvalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: approval %s is not pending", domain.ErrInvalidTransition, approvalID)
	}
	return nil
}

// statusPlaceholders 构造 status IN (...) 片段
func statusPlaceholders[T ~string](from []T, startN int) (string, []any) {
	ph := make([]string, 0, len(from))
	args := make([]any, 0, len(from))
	for i, s := range from {
		ph = append(ph, fmt.Sprintf("$%d", startN+i))
		args = append(args, string(s))
	}
	return strings.Join(ph, ", "), args
}

// UpdatePermitStatus 条件更新许可证状态
func (r *PostgresPermitsRepository) UpdatePermitStatus(ctx context.Context, permitID string, from []domain.PermitStatus, to domain.PermitStatus) error {
	ph, fromArgs := statusPlaceholders(from, 3)
	args := append([]any{to, permitID}, fromArgs...)

	res, err := r.db.ExecContext(ctx,
		`UPDATE permits SET status = $1, updated_at = NOW() WHERE permit_id = $2 AND status IN (`+ph+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update permit status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: permit %s not in expected status", domain.ErrInvalidTransition, permitID)
	}
	return nil
}

// ResetApprovals 审批行全部复位（reapprove）
func (r *PostgresPermitsRepository) ResetApprovals(ctx context.Context, permitID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE permit_approvals
		 SET decision = 'PENDING', comment = NULL, approved_by = NULL, approved_at = NULL
		 WHERE permit_id = $1`,
		permitID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset approvals: %w", err)
	}
	return nil
}

// ExtendPermit 延长 end_date，不改状态
func (r *PostgresPermitsRepository) ExtendPermit(ctx context.Context, permitID string, from []domain.PermitStatus, newEndDate time.Time) error {
	ph, fromArgs := statusPlaceholders(from, 3)
	args := append([]any{newEndDate, permitID}, fromArgs...)

	res, err := r.db.ExecContext(ctx,
		`UPDATE permits SET end_date = $1, updated_at = NOW() WHERE permit_id = $2 AND status IN (`+ph+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to extend permit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: permit %s not in expected status", domain.ErrInvalidTransition, permitID)
	}
	return nil
}

// CountByStatus 按状态统计
func (r *PostgresPermitsRepository) CountByStatus(ctx context.Context) (map[domain.PermitStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM permits GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count permits by status: %w", err)
	}
	defer rows.Close()

	counts := map[domain.PermitStatus]int{}
	for rows.Next() {
		var status domain.PermitStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
