package repository

import (
	"context"

	"sitepass/internal/domain"
)

// UsersRepository 用户Repository接口
type UsersRepository interface {
	GetByAccount(ctx context.Context, account string) (*domain.User, error)
	GetByID(ctx context.Context, userID string) (*domain.User, error)
	// Upsert 以 account 为唯一键（种子创建默认管理员用）
	Upsert(ctx context.Context, u *domain.User) (string, error)
}
