package httpapi

import (
	"fmt"
	"net/http"

	"sitepass/internal/domain"
	"sitepass/internal/repository"
	"sitepass/internal/service"
	"sitepass/internal/workflow"

	"go.uber.org/zap"
)

// AdminHandler 角色/公司管理 Handler
type AdminHandler struct {
	roles     repository.RolesRepository
	directory *service.CompanyDirectory
	logger    *zap.Logger
}

func NewAdminHandler(roles repository.RolesRepository, directory *service.CompanyDirectory, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{roles: roles, directory: directory, logger: logger}
}

// requireManage 管理接口的权限检查
func (h *AdminHandler) requireManage(r *http.Request, permission string) error {
	user := currentUser(r)
	role, err := h.roles.GetRoleByCode(r.Context(), user.RoleCode)
	if err != nil {
		return fmt.Errorf("%w: unknown role %s", domain.ErrUnauthorized, user.RoleCode)
	}
	actor := workflow.Actor{UserID: user.UserID, RoleCode: role.RoleCode, Permissions: role.Permissions}
	if !actor.HasPermission(permission) {
		return fmt.Errorf("%w: missing permission %s", domain.ErrUnauthorized, permission)
	}
	return nil
}

// Roles GET/POST /vms/api/v1/admin/roles
func (h *AdminHandler) Roles(w http.ResponseWriter, r *http.Request) {
	if err := h.requireManage(r, domain.PermRolesManage); err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		roles, err := h.roles.ListRoles(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		items := make([]roleItem, 0, len(roles))
		for _, role := range roles {
			items = append(items, toRoleItem(role))
		}
		writeJSON(w, http.StatusOK, Ok(items))
	case http.MethodPost:
		var req roleItem
		if err := readBodyJSON(r, 1<<20, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
			return
		}
		if req.RoleCode == "" {
			writeJSON(w, http.StatusBadRequest, Fail("role_code is required"))
			return
		}
		err := h.roles.UpsertRole(r.Context(), &domain.Role{
			RoleCode:    req.RoleCode,
			DisplayName: req.DisplayName,
			Description: req.Description,
			Permissions: req.Permissions,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		role, err := h.roles.GetRoleByCode(r.Context(), req.RoleCode)
		if err != nil {
			writeError(w, err)
			return
		}
		h.logger.Info("Role upserted", zap.String("role_code", req.RoleCode))
		writeJSON(w, http.StatusOK, Ok(toRoleItem(role)))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Companies GET/POST /vms/api/v1/admin/companies
func (h *AdminHandler) Companies(w http.ResponseWriter, r *http.Request) {
	if err := h.requireManage(r, domain.PermCompaniesManage); err != nil {
		writeError(w, err)
		return
	}
	switch r.Method {
	case http.MethodGet:
		companies, err := h.directory.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		items := make([]companyItem, 0, len(companies))
		for _, c := range companies {
			items = append(items, toCompanyItem(c))
		}
		writeJSON(w, http.StatusOK, Ok(items))
	case http.MethodPost:
		var req companyItem
		if err := readBodyJSON(r, 1<<20, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
			return
		}
		c := &domain.Company{
			CompanyCode:     req.CompanyCode,
			CompanyName:     req.CompanyName,
			RequireApproval: true,
			IsActive:        true,
		}
		if req.RequireApproval != nil {
			c.RequireApproval = *req.RequireApproval
		}
		if req.IsActive != nil {
			c.IsActive = *req.IsActive
		}
		companyID, err := h.directory.Upsert(r.Context(), c)
		if err != nil {
			writeError(w, err)
			return
		}
		c.CompanyID = companyID
		h.logger.Info("Company upserted", zap.String("company_code", req.CompanyCode))
		writeJSON(w, http.StatusOK, Ok(toCompanyItem(c)))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type roleItem struct {
	RoleCode    string   `json:"role_code"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	IsSystem    bool     `json:"is_system"`
}

func toRoleItem(role *domain.Role) roleItem {
	return roleItem{
		RoleCode:    role.RoleCode,
		DisplayName: role.DisplayName,
		Description: role.Description,
		Permissions: role.Permissions,
		IsSystem:    role.IsSystem,
	}
}

// companyItem require_approval/is_active 用指针区分"未提供"与 false
type companyItem struct {
	CompanyID       string `json:"company_id,omitempty"`
	CompanyCode     string `json:"company_code"`
	CompanyName     string `json:"company_name"`
	RequireApproval *bool  `json:"require_approval,omitempty"`
	IsActive        *bool  `json:"is_active,omitempty"`
}

func toCompanyItem(c *domain.Company) companyItem {
	requireApproval := c.RequireApproval
	isActive := c.IsActive
	return companyItem{
		CompanyID:       c.CompanyID,
		CompanyCode:     c.CompanyCode,
		CompanyName:     c.CompanyName,
		RequireApproval: &requireApproval,
		IsActive:        &isActive,
	}
}
