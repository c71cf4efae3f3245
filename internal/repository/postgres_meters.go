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

// PostgresMetersRepository 抄表记录Repository实现
// reading_value / previous_reading / consumption 为 NUMERIC(12,2)，
// 经 shopspring/decimal 扫描，避免浮点漂移
type PostgresMetersRepository struct {
	db *sql.DB
}

// NewPostgresMetersRepository 创建抄表Repository
func NewPostgresMetersRepository(db *sql.DB) *PostgresMetersRepository {
	return &PostgresMetersRepository{db: db}
}

var _ MetersRepository = (*PostgresMetersRepository)(nil)

const meterColumns = `
	reading_id::text,
	meter_serial,
	meter_type,
	reading_value,
	previous_reading,
	consumption,
	reading_date,
	recorded_by::text,
	is_verified,
	verified_by,
	verified_at,
	created_at
`

func scanMeterReading(row interface{ Scan(...any) error }) (*domain.MeterReading, error) {
	var m domain.MeterReading
	err := row.Scan(
		&m.ReadingID,
		&m.MeterSerial,
		&m.MeterType,
		&m.ReadingValue,
		&m.PreviousReading,
		&m.Consumption,
		&m.ReadingDate,
		&m.RecordedBy,
		&m.IsVerified,
		&m.VerifiedBy,
		&m.VerifiedAt,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateReading 创建抄表记录（consumption 已由 Service 层算好）
func (r *PostgresMetersRepository) CreateReading(ctx context.Context, m *domain.MeterReading) (string, error) {
	if m.MeterSerial == "" {
		return "", fmt.Errorf("%w: meter_serial is required", domain.ErrValidation)
	}

	readingID := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meter_readings (reading_id, meter_serial, meter_type, reading_value, previous_reading, consumption, reading_date, recorded_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		readingID,
		m.MeterSerial,
		m.MeterType,
		m.ReadingValue,
		m.PreviousReading,
		m.Consumption,
		m.ReadingDate,
		m.RecordedBy,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert meter reading: %w", err)
	}
	return readingID, nil
}

// GetReading 按ID查询
func (r *PostgresMetersRepository) GetReading(ctx context.Context, readingID string) (*domain.MeterReading, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+meterColumns+` FROM meter_readings WHERE reading_id = $1`, readingID)
	m, err := scanMeterReading(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: meter reading %s", domain.ErrNotFound, readingID)
		}
		return nil, fmt.Errorf("failed to query meter reading: %w", err)
	}
	return m, nil
}

// GetLatestReading 表计最近一条记录
func (r *PostgresMetersRepository) GetLatestReading(ctx context.Context, meterSerial string) (*domain.MeterReading, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+meterColumns+` FROM meter_readings WHERE meter_serial = $1 ORDER BY reading_date DESC, created_at DESC LIMIT 1`,
		meterSerial,
	)
	m, err := scanMeterReading(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: no readings for meter %s", domain.ErrNotFound, meterSerial)
		}
		return nil, fmt.Errorf("failed to query latest reading: %w", err)
	}
	return m, nil
}

func metersFilterClause(filter MetersFilter) (string, []any) {
	where := []string{}
	args := []any{}
	argN := 1

	if filter.MeterType != "" {
		where = append(where, fmt.Sprintf("meter_type = $%d", argN))
		args = append(args, filter.MeterType)
		argN++
	}
	if filter.StartDate != nil {
		where = append(where, fmt.Sprintf("reading_date >= $%d", argN))
		args = append(args, *filter.StartDate)
		argN++
	}
	if filter.EndDate != nil {
		where = append(where, fmt.Sprintf("reading_date <= $%d", argN))
		args = append(args, *filter.EndDate)
		argN++
	}

	if len(where) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(where, " AND "), args
}

// ListReadings 查询抄表记录（limit 限制结果集，导出用）
func (r *PostgresMetersRepository) ListReadings(ctx context.Context, filter MetersFilter, limit int) ([]*domain.MeterReading, error) {
	whereClause, args := metersFilterClause(filter)

	query := `SELECT ` + meterColumns + ` FROM meter_readings ` + whereClause + ` ORDER BY reading_date DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meter readings: %w", err)
	}
	defer rows.Close()

	readings := []*domain.MeterReading{}
	for rows.Next() {
		m, err := scanMeterReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meter reading: %w", err)
		}
		readings = append(readings, m)
	}
	return readings, rows.Err()
}

// VerifyReading 一次性核验（条件更新，仅 is_verified=false）
func (r *PostgresMetersRepository) VerifyReading(ctx context.Context, readingID, verifiedBy string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE meter_readings SET is_verified = TRUE, verified_by = $1, verified_at = $2
		 WHERE reading_id = $3 AND is_verified = FALSE`,
		verifiedBy, at, readingID,
	)
	if err != nil {
		return fmt.Errorf("failed to verify meter reading: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: meter reading %s already verified", domain.ErrInvalidTransition, readingID)
	}
	return nil
}

// AggregateByType 按表计类型分组聚合
func (r *PostgresMetersRepository) AggregateByType(ctx context.Context, filter MetersFilter) ([]MeterAggregate, error) {
	whereClause, args := metersFilterClause(filter)

	rows, err := r.db.QueryContext(ctx,
		`SELECT meter_type, COUNT(*), COALESCE(SUM(consumption), 0), COALESCE(AVG(consumption), 0)
		 FROM meter_readings `+whereClause+`
		 GROUP BY meter_type
		 ORDER BY meter_type ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate meter readings: %w", err)
	}
	defer rows.Close()

	aggs := []MeterAggregate{}
	for rows.Next() {
		var a MeterAggregate
		if err := rows.Scan(&a.MeterType, &a.Count, &a.Total, &a.Average); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}
