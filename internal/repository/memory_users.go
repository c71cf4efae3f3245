package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sitepass/internal/domain"

	"github.com/google/uuid"
)

// MemoryUsersRepo 内存用户Repository
type MemoryUsersRepo struct {
	mu        sync.RWMutex
	byAccount map[string]domain.User
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{byAccount: map[string]domain.User{}}
}

var _ UsersRepository = (*MemoryUsersRepo)(nil)

func (r *MemoryUsersRepo) GetByAccount(_ context.Context, account string) (*domain.User, error) {
	if account == "" {
		return nil, fmt.Errorf("%w: account is required", domain.ErrValidation)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byAccount[account]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, account)
	}
	cp := u
	return &cp, nil
}

func (r *MemoryUsersRepo) GetByID(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byAccount {
		if u.UserID == userID {
			cp := u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, userID)
}

func (r *MemoryUsersRepo) Upsert(_ context.Context, u *domain.User) (string, error) {
	if u.Account == "" {
		return "", fmt.Errorf("%w: account is required", domain.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item := *u
	if existing, ok := r.byAccount[u.Account]; ok {
		item.UserID = existing.UserID
		item.CreatedAt = existing.CreatedAt
	} else {
		if item.UserID == "" {
			item.UserID = uuid.NewString()
		}
		item.CreatedAt = time.Now()
	}
	r.byAccount[u.Account] = item
	return item.UserID, nil
}
