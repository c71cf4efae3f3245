package httpapi

import (
	"net/http"
	"strings"

	"sitepass/internal/service"

	"go.uber.org/zap"
)

const permitsPrefix = "/vms/api/v1/permits"

// PermitHandler 作业许可证 Handler
type PermitHandler struct {
	permits *service.PermitService
	logger  *zap.Logger
}

func NewPermitHandler(permits *service.PermitService, logger *zap.Logger) *PermitHandler {
	return &PermitHandler{permits: permits, logger: logger}
}

// ServeHTTP 路由分发
// GET  /vms/api/v1/permits                 列表
// POST /vms/api/v1/permits                 创建
// GET  /vms/api/v1/permits/{id}            详情
// POST /vms/api/v1/permits/{id}/{action}   approve/reject/revoke/close/extend/reapprove
func (h *PermitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, permitsPrefix), "/")
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
		h.Get(w, r, rest)
	default:
		parts := strings.SplitN(rest, "/", 2)
		if r.Method != http.MethodPost || strings.Contains(parts[1], "/") {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Action(w, r, parts[0], parts[1])
	}
}

func (h *PermitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePermitRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	detail, err := h.permits.Create(r.Context(), req, currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(detail))
}

func (h *PermitHandler) Get(w http.ResponseWriter, r *http.Request, permitID string) {
	detail, err := h.permits.Get(r.Context(), permitID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detail))
}

func (h *PermitHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.permits.List(r.Context(), service.ListPermitsRequest{
		Status:    q.Get("status"),
		WorkType:  q.Get("work_type"),
		CreatedBy: q.Get("created_by"),
		Search:    q.Get("search"),
		Page:      parseInt(q.Get("page"), 1),
		PageSize:  parseInt(q.Get("page_size"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// permitActionBody approve/reject/extend 的可选请求体
type permitActionBody struct {
	Comment string `json:"comment"`
	EndDate string `json:"end_date"`
}

func (h *PermitHandler) Action(w http.ResponseWriter, r *http.Request, permitID, action string) {
	var body permitActionBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	ctx := r.Context()
	user := currentUser(r)
	var (
		detail *service.PermitDetail
		err    error
	)
	switch action {
	case "approve":
		detail, err = h.permits.Decide(ctx, service.DecidePermitRequest{
			PermitID: permitID, Approve: true, Comment: body.Comment,
		}, user)
	case "reject":
		detail, err = h.permits.Decide(ctx, service.DecidePermitRequest{
			PermitID: permitID, Approve: false, Comment: body.Comment,
		}, user)
	case "revoke":
		detail, err = h.permits.Revoke(ctx, permitID, user)
	case "close":
		detail, err = h.permits.Close(ctx, permitID, user)
	case "extend":
		detail, err = h.permits.Extend(ctx, service.ExtendPermitRequest{
			PermitID: permitID, EndDate: body.EndDate,
		}, user)
	case "reapprove":
		detail, err = h.permits.Reapprove(ctx, permitID, user)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detail))
}
