package httpapi

import (
	"net/http"

	"sitepass/internal/service"

	"go.uber.org/zap"
)

// AuthHandler 认证 Handler
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Login 账号密码登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		// 登录失败统一 401，不走 writeError 的 403 映射
		h.logger.Warn("Login failed", zap.String("account", req.Account))
		writeJSON(w, http.StatusUnauthorized, Fail("invalid credentials"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}
