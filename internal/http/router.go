package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuthRoutes 认证路由（公共）
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/vms/api/v1/auth/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Login(w, req)
	})
}

// RegisterCheckinRoutes 访客签到公共路由（无登录态）
func (r *Router) RegisterCheckinRoutes(h *VisitorHandler) {
	r.Handle(checkinPrefix+"/", h.ServeCheckin)
}

// RegisterVisitorRoutes 访客管理路由（需登录）
func (r *Router) RegisterVisitorRoutes(h *VisitorHandler, auth *AuthMiddleware) {
	r.Handle(visitorsPrefix, auth.Require(h.ServeVisitors))
	r.Handle(visitorsPrefix+"/", auth.Require(h.ServeVisitors))
}

// RegisterPermitRoutes 许可证路由（需登录）
func (r *Router) RegisterPermitRoutes(h *PermitHandler, auth *AuthMiddleware) {
	r.Handle(permitsPrefix, auth.Require(h.ServeHTTP))
	r.Handle(permitsPrefix+"/", auth.Require(h.ServeHTTP))
}

// RegisterPreApprovalRoutes 预批路由（需登录）
func (r *Router) RegisterPreApprovalRoutes(h *PreApprovalHandler, auth *AuthMiddleware) {
	r.Handle(preApprovalsPrefix, auth.Require(h.ServeHTTP))
	r.Handle(preApprovalsPrefix+"/", auth.Require(h.ServeHTTP))
}

// RegisterMeterRoutes 抄表路由（需登录）
func (r *Router) RegisterMeterRoutes(h *MeterHandler, auth *AuthMiddleware) {
	r.Handle(metersPrefix+"/", auth.Require(h.ServeHTTP))
}

// RegisterDashboardRoutes 仪表盘路由（需登录）
func (r *Router) RegisterDashboardRoutes(h *DashboardHandler, auth *AuthMiddleware) {
	r.Handle("/vms/api/v1/dashboard/summary", auth.Require(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Summary(w, req)
	}))
}

// RegisterAdminRoutes 管理路由（需登录 + roles.manage/companies.manage）
func (r *Router) RegisterAdminRoutes(h *AdminHandler, auth *AuthMiddleware) {
	r.Handle("/vms/api/v1/admin/roles", auth.Require(h.Roles))
	r.Handle("/vms/api/v1/admin/companies", auth.Require(h.Companies))
}

// RegisterHealthRoute 存活探针
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}
