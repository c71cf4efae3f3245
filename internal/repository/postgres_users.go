package repository

import (
	"context"
	"database/sql"
	"fmt"

	"sitepass/internal/domain"

	"github.com/google/uuid"
)

// PostgresUsersRepository 用户Repository实现
type PostgresUsersRepository struct {
	db *sql.DB
}

// NewPostgresUsersRepository 创建用户Repository
func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	user_id::text,
	account,
	display_name,
	password_hash,
	role_code,
	company_id,
	is_active,
	created_at
`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.UserID,
		&u.Account,
		&u.DisplayName,
		&u.PasswordHash,
		&u.RoleCode,
		&u.CompanyID,
		&u.IsActive,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByAccount 按账号查询（登录用）
func (r *PostgresUsersRepository) GetByAccount(ctx context.Context, account string) (*domain.User, error) {
	if account == "" {
		return nil, fmt.Errorf("%w: account is required", domain.ErrValidation)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE account = $1`, account)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, account)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// GetByID 按ID查询
func (r *PostgresUsersRepository) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

// Upsert 以 account 为唯一键 create-or-update（种子默认账号用）
func (r *PostgresUsersRepository) Upsert(ctx context.Context, u *domain.User) (string, error) {
	if u.Account == "" {
		return "", fmt.Errorf("%w: account is required", domain.ErrValidation)
	}

	userID := u.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (user_id, account, display_name, password_hash, role_code, company_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (account)
		 DO UPDATE SET display_name = EXCLUDED.display_name,
		               password_hash = EXCLUDED.password_hash,
		               role_code = EXCLUDED.role_code,
		               company_id = EXCLUDED.company_id,
		               is_active = EXCLUDED.is_active
		 RETURNING user_id::text`,
		userID, u.Account, u.DisplayName, u.PasswordHash, u.RoleCode, u.CompanyID, u.IsActive,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert user: %w", err)
	}
	return id, nil
}
