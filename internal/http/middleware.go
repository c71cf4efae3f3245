package httpapi

import (
	"context"
	"net/http"
	"strings"

	"sitepass/internal/domain"
	"sitepass/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const userContextKey contextKey = "sitepass.user"

// AuthMiddleware Bearer JWT 鉴权
// 解析通过后把 *domain.User 放入请求上下文，细粒度权限在 Service 层校验
type AuthMiddleware struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthMiddleware(auth *service.AuthService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, logger: logger}
}

// Require 包装需要登录态的 HandlerFunc
func (m *AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, Result[any]{
				Code: ResultTokenExpired, Type: "error", Message: "missing bearer token",
			})
			return
		}
		claims, err := m.auth.ParseToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, Result[any]{
				Code: ResultTokenExpired, Type: "error", Message: "invalid or expired token",
			})
			return
		}
		user, err := m.auth.CurrentUser(r.Context(), claims)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, Result[any]{
				Code: ResultTokenExpired, Type: "error", Message: "invalid or expired token",
			})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// currentUser 从上下文取登录用户（Require 之后一定存在）
func currentUser(r *http.Request) *domain.User {
	user, _ := r.Context().Value(userContextKey).(*domain.User)
	return user
}
