package httpapi

import (
	"net/http"
	"strings"

	"sitepass/internal/service"

	"go.uber.org/zap"
)

const (
	checkinPrefix  = "/vms/api/v1/checkin"
	visitorsPrefix = "/vms/api/v1/visitors"
)

// VisitorHandler 访客管理 Handler
// checkin/* 为公共接口（访客手机扫码，无登录态）；visitors/* 为管理端接口
type VisitorHandler struct {
	visitors *service.VisitorService
	gatepass *service.GatepassService
	logger   *zap.Logger
}

func NewVisitorHandler(visitors *service.VisitorService, gatepass *service.GatepassService, logger *zap.Logger) *VisitorHandler {
	return &VisitorHandler{visitors: visitors, gatepass: gatepass, logger: logger}
}

// Submit 公共签到提交
// POST /vms/api/v1/checkin/submit
func (h *VisitorHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitCheckInRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	resp, err := h.visitors.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

// Status 公共轮询
// GET /vms/api/v1/checkin/status/{requestNumber}
func (h *VisitorHandler) Status(w http.ResponseWriter, r *http.Request, requestNumber string) {
	resp, err := h.visitors.Status(r.Context(), requestNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Gatepass 门禁二维码 PNG
// GET /vms/api/v1/checkin/gatepass/{requestNumber}
func (h *VisitorHandler) Gatepass(w http.ResponseWriter, r *http.Request, requestNumber string) {
	png, err := h.gatepass.GatepassPNG(r.Context(), requestNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ServeCheckin checkin/* 公共路由分发
func (h *VisitorHandler) ServeCheckin(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, checkinPrefix), "/")
	switch {
	case rest == "submit":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Submit(w, r)
	case strings.HasPrefix(rest, "status/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Status(w, r, strings.TrimPrefix(rest, "status/"))
	case strings.HasPrefix(rest, "gatepass/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Gatepass(w, r, strings.TrimPrefix(rest, "gatepass/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ServeVisitors visitors/* 管理端路由分发
// GET  /vms/api/v1/visitors                  列表
// POST /vms/api/v1/visitors/{id}/{action}    approve/reject/checkin/checkout
func (h *VisitorHandler) ServeVisitors(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, visitorsPrefix), "/")
	switch {
	case rest == "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, r)
	case strings.Count(rest, "/") == 1:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		parts := strings.SplitN(rest, "/", 2)
		h.Action(w, r, parts[0], parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *VisitorHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.visitors.List(r.Context(), service.ListVisitorsRequest{
		CompanyID: q.Get("company_id"),
		Status:    q.Get("status"),
		Search:    q.Get("search"),
		Page:      parseInt(q.Get("page"), 1),
		PageSize:  parseInt(q.Get("page_size"), 20),
	}, currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// visitorActionBody approve/reject 的可选请求体
type visitorActionBody struct {
	Reason string `json:"reason"`
}

func (h *VisitorHandler) Action(w http.ResponseWriter, r *http.Request, requestID, action string) {
	var body visitorActionBody
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	ctx := r.Context()
	user := currentUser(r)
	var (
		item *service.VisitorItem
		err  error
	)
	switch action {
	case "approve":
		item, err = h.visitors.Decide(ctx, service.DecideVisitorRequest{
			RequestID: requestID, Approve: true, Reason: body.Reason,
		}, user)
	case "reject":
		item, err = h.visitors.Decide(ctx, service.DecideVisitorRequest{
			RequestID: requestID, Approve: false, Reason: body.Reason,
		}, user)
	case "checkin":
		item, err = h.visitors.CheckIn(ctx, requestID, user)
	case "checkout":
		item, err = h.visitors.CheckOut(ctx, requestID, user)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(item))
}
