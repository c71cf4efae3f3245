package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sitepass/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresVisitorsRepository 访客请求Repository实现
type PostgresVisitorsRepository struct {
	db *sql.DB
}

// NewPostgresVisitorsRepository 创建访客请求Repository
func NewPostgresVisitorsRepository(db *sql.DB) *PostgresVisitorsRepository {
	return &PostgresVisitorsRepository{db: db}
}

var _ VisitorsRepository = (*PostgresVisitorsRepository)(nil)

const visitorColumns = `
	request_id::text,
	request_number,
	company_id::text,
	visitor_name,
	phone,
	purpose,
	host_name,
	status,
	requires_approval,
	pre_approval_code,
	expires_at,
	decided_by,
	decision_reason,
	check_in_time,
	check_out_time,
	created_at
`

func scanVisitorRequest(row interface{ Scan(...any) error }) (*domain.VisitorRequest, error) {
	var v domain.VisitorRequest
	err := row.Scan(
		&v.RequestID,
		&v.RequestNumber,
		&v.CompanyID,
		&v.VisitorName,
		&v.Phone,
		&v.Purpose,
		&v.HostName,
		&v.Status,
		&v.RequiresApproval,
		&v.PreApprovalCode,
		&v.ExpiresAt,
		&v.DecidedBy,
		&v.DecisionReason,
		&v.CheckInTime,
		&v.CheckOutTime,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateRequest 创建访客请求
// request_number 唯一键冲突映射为 ErrConflict
func (r *PostgresVisitorsRepository) CreateRequest(ctx context.Context, req *domain.VisitorRequest) (string, error) {
	if req.VisitorName == "" {
		return "", fmt.Errorf("%w: visitor_name is required", domain.ErrValidation)
	}
	if req.Phone == "" {
		return "", fmt.Errorf("%w: phone is required", domain.ErrValidation)
	}

	requestID := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO visitor_requests (
			request_id, request_number, company_id, visitor_name, phone, purpose, host_name,
			status, requires_approval, pre_approval_code, expires_at, check_in_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		requestID,
		req.RequestNumber,
		req.CompanyID,
		req.VisitorName,
		req.Phone,
		req.Purpose,
		req.HostName,
		req.Status,
		req.RequiresApproval,
		req.PreApprovalCode,
		req.ExpiresAt,
		req.CheckInTime,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", fmt.Errorf("%w: request_number %s", domain.ErrConflict, req.RequestNumber)
		}
		return "", fmt.Errorf("failed to insert visitor request: %w", err)
	}
	return requestID, nil
}

// GetRequest 按ID查询
func (r *PostgresVisitorsRepository) GetRequest(ctx context.Context, requestID string) (*domain.VisitorRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+visitorColumns+` FROM visitor_requests WHERE request_id = $1`, requestID)
	v, err := scanVisitorRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: visitor request %s", domain.ErrNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to query visitor request: %w", err)
	}
	return v, nil
}

// GetByRequestNumber 按对外编号查询（轮询接口）
func (r *PostgresVisitorsRepository) GetByRequestNumber(ctx context.Context, requestNumber string) (*domain.VisitorRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+visitorColumns+` FROM visitor_requests WHERE request_number = $1`, requestNumber)
	v, err := scanVisitorRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: visitor request %s", domain.ErrNotFound, requestNumber)
		}
		return nil, fmt.Errorf("failed to query visitor request: %w", err)
	}
	return v, nil
}

// ListRequests 查询访客请求列表
func (r *PostgresVisitorsRepository) ListRequests(ctx context.Context, filter VisitorsFilter, page, size int) ([]*domain.VisitorRequest, int, error) {
	where := []string{}
	args := []any{}
	argN := 1

	if filter.CompanyID != "" {
		where = append(where, fmt.Sprintf("company_id = $%d", argN))
		args = append(args, filter.CompanyID)
		argN++
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, filter.Status)
		argN++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(visitor_name ILIKE $%d OR request_number ILIKE $%d)", argN, argN))
		args = append(args, "%"+filter.Search+"%")
		argN++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visitor_requests `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count visitor requests: %w", err)
	}

	page, size = clampPage(page, size)
	offset := (page - 1) * size

	query := `SELECT ` + visitorColumns + ` FROM visitor_requests ` + whereClause +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argN, argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query visitor requests: %w", err)
	}
	defer rows.Close()

	reqs := []*domain.VisitorRequest{}
	for rows.Next() {
		v, err := scanVisitorRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan visitor request: %w", err)
		}
		reqs = append(reqs, v)
	}
	return reqs, total, rows.Err()
}

// UpdateStatus 条件更新状态及附带字段
func (r *PostgresVisitorsRepository) UpdateStatus(ctx context.Context, requestID string, from []domain.VisitorStatus, to domain.VisitorStatus, set VisitorStatusUpdate) error {
	sets := []string{"status = $1"}
	args := []any{string(to)}
	argN := 2

	if set.DecidedBy != nil {
		sets = append(sets, fmt.Sprintf("decided_by = $%d", argN))
		args = append(args, *set.DecidedBy)
		argN++
	}
	if set.DecisionReason != nil {
		sets = append(sets, fmt.Sprintf("decision_reason = $%d", argN))
		args = append(args, *set.DecisionReason)
		argN++
	}
	if set.CheckInTime != nil {
		sets = append(sets, fmt.Sprintf("check_in_time = $%d", argN))
		args = append(args, *set.CheckInTime)
		argN++
	}
	if set.CheckOutTime != nil {
		sets = append(sets, fmt.Sprintf("check_out_time = $%d", argN))
		args = append(args, *set.CheckOutTime)
		argN++
	}

	args = append(args, requestID)
	idN := argN
	argN++

	ph, fromArgs := statusPlaceholders(from, argN)
	args = append(args, fromArgs...)

	query := `UPDATE visitor_requests SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(` WHERE request_id = $%d AND status IN (`, idN) + ph + `)`

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update visitor status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: visitor request %s not in expected status", domain.ErrInvalidTransition, requestID)
	}
	return nil
}

// CountByDay 按天统计提交量（仪表盘）
func (r *PostgresVisitorsRepository) CountByDay(ctx context.Context, since time.Time) ([]DayCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DATE_TRUNC('day', created_at) AS day, COUNT(*)
		 FROM visitor_requests
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day ASC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count visitor requests by day: %w", err)
	}
	defer rows.Close()

	counts := []DayCount{}
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}
