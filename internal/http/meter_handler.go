package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"sitepass/internal/service"

	"go.uber.org/zap"
)

const metersPrefix = "/vms/api/v1/meters"

// MeterHandler 抄表 Handler
type MeterHandler struct {
	meters *service.MeterService
	export *service.ExportService
	logger *zap.Logger
}

func NewMeterHandler(meters *service.MeterService, export *service.ExportService, logger *zap.Logger) *MeterHandler {
	return &MeterHandler{meters: meters, export: export, logger: logger}
}

// ServeHTTP 路由分发
// GET  /vms/api/v1/meters/readings              列表
// POST /vms/api/v1/meters/readings              录入
// POST /vms/api/v1/meters/readings/{id}/verify  核验
// GET  /vms/api/v1/meters/export?format=csv     导出 csv/json/xlsx
func (h *MeterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, metersPrefix), "/")
	switch {
	case rest == "readings":
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(rest, "readings/") && strings.HasSuffix(rest, "/verify"):
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		readingID := strings.TrimSuffix(strings.TrimPrefix(rest, "readings/"), "/verify")
		h.Verify(w, r, readingID)
	case rest == "export":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Export(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *MeterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateReadingRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	item, err := h.meters.CreateReading(r.Context(), req, currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(item))
}

func (h *MeterHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.meters.List(r.Context(), service.ListReadingsRequest{
		MeterType: q.Get("meter_type"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Limit:     parseInt(q.Get("limit"), 100),
	}, currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

func (h *MeterHandler) Verify(w http.ResponseWriter, r *http.Request, readingID string) {
	item, err := h.meters.Verify(r.Context(), readingID, currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(item))
}

func (h *MeterHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.export.Export(r.Context(), service.ExportRequest{
		Format:    q.Get("format"),
		MeterType: q.Get("meter_type"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}, currentUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
