package httpapi

import (
	"net/http"
	"strings"

	"sitepass/internal/service"

	"go.uber.org/zap"
)

const preApprovalsPrefix = "/vms/api/v1/preapprovals"

// PreApprovalHandler 访客预批 Handler
type PreApprovalHandler struct {
	preApprovals *service.PreApprovalService
	logger       *zap.Logger
}

func NewPreApprovalHandler(preApprovals *service.PreApprovalService, logger *zap.Logger) *PreApprovalHandler {
	return &PreApprovalHandler{preApprovals: preApprovals, logger: logger}
}

// ServeHTTP 路由分发
// GET  /vms/api/v1/preapprovals               列表
// POST /vms/api/v1/preapprovals               创建
// GET  /vms/api/v1/preapprovals/{code}        查询有效性
// POST /vms/api/v1/preapprovals/{code}/cancel 取消
func (h *PreApprovalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, preApprovalsPrefix), "/")
	switch {
	case rest == "":
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case !strings.Contains(rest, "/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Validate(w, r, rest)
	case strings.HasSuffix(rest, "/cancel"):
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Cancel(w, r, strings.TrimSuffix(rest, "/cancel"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *PreApprovalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePreApprovalRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	item, err := h.preApprovals.Create(r.Context(), req, currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(item))
}

func (h *PreApprovalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.preApprovals.List(r.Context(),
		q.Get("company_id"),
		parseInt(q.Get("page"), 1),
		parseInt(q.Get("page_size"), 20),
		currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *PreApprovalHandler) Validate(w http.ResponseWriter, r *http.Request, approvalCode string) {
	item, err := h.preApprovals.Validate(r.Context(), approvalCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(item))
}

func (h *PreApprovalHandler) Cancel(w http.ResponseWriter, r *http.Request, approvalCode string) {
	item, err := h.preApprovals.Cancel(r.Context(), approvalCode, currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(item))
}
