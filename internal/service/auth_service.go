package service

import (
	"context"
	"fmt"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 登录与令牌服务（bcrypt + JWT）
type AuthService struct {
	users  repository.UsersRepository
	secret []byte
	expiry time.Duration
	logger *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(users repository.UsersRepository, secret string, expiry time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		expiry: expiry,
		logger: logger,
	}
}

// Claims JWT 载荷
type Claims struct {
	Account  string `json:"account"`
	RoleCode string `json:"role_code"`
	jwt.RegisteredClaims
}

// LoginRequest 登录请求
type LoginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	Account     string `json:"account"`
	DisplayName string `json:"display_name"`
	RoleCode    string `json:"role_code"`
}

// Login 账号密码登录
// 账号不存在和密码错误返回同样的 Unauthorized，不泄露账号是否存在
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if req.Account == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: account and password are required", domain.ErrValidation)
	}

	user, err := s.users.GetByAccount(ctx, req.Account)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}

	now := time.Now()
	claims := Claims{
		Account:  user.Account,
		RoleCode: user.RoleCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("User logged in", zap.String("account", user.Account), zap.String("role", user.RoleCode))
	return &LoginResponse{
		Token:       token,
		UserID:      user.UserID,
		Account:     user.Account,
		DisplayName: user.DisplayName,
		RoleCode:    user.RoleCode,
	}, nil
}

// ParseToken 校验并解析 JWT
func (s *AuthService) ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	return claims, nil
}

// CurrentUser 从令牌载荷加载用户
func (s *AuthService) CurrentUser(ctx context.Context, claims *Claims) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", domain.ErrUnauthorized)
	}
	return user, nil
}

// HashPassword bcrypt 摘要（种子和用户管理用）
func HashPassword(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}
