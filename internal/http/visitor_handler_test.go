package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sitepass/internal/domain"
	"sitepass/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitorFlow_EndToEnd(t *testing.T) {
	env := newTestEnv(t, "")
	adminToken := env.addUser(t, "admin01", domain.RoleAdmin)
	receptionToken := env.addUser(t, "reception01", domain.RoleReception)
	guardToken := env.addUser(t, "guard01", domain.RoleGuard)

	// 建需要审批的公司
	decode[map[string]any](t, env.do(t, http.MethodPost, "/vms/api/v1/admin/companies", adminToken,
		map[string]any{"company_code": "ACME", "company_name": "Acme Co."}), http.StatusOK)

	// 公共提交（无令牌）
	submitted := decode[service.SubmitCheckInResponse](t, env.do(t, http.MethodPost,
		"/vms/api/v1/checkin/submit", "",
		map[string]string{
			"company_code": "ACME",
			"visitor_name": "Zhang Wei",
			"phone":        "13800000000",
			"purpose":      "interview",
		}), http.StatusCreated)
	assert.Equal(t, string(domain.VisitorPending), submitted.Status)
	assert.Equal(t, 5, submitted.PollIntervalSec)

	// 公共轮询
	status := decode[service.VisitorStatusResponse](t, env.do(t, http.MethodGet,
		"/vms/api/v1/checkin/status/"+submitted.RequestNumber, "", nil), http.StatusOK)
	assert.Equal(t, string(domain.VisitorPending), status.Status)

	// 管理端列表拿 request_id
	list := decode[service.ListVisitorsResponse](t, env.do(t, http.MethodGet,
		"/vms/api/v1/visitors", receptionToken, nil), http.StatusOK)
	require.Len(t, list.Items, 1)
	requestID := list.Items[0].RequestID

	// 门卫不能审批 => 403
	resp := env.do(t, http.MethodPost, "/vms/api/v1/visitors/"+requestID+"/approve", guardToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// 前台审批通过
	item := decode[service.VisitorItem](t, env.do(t, http.MethodPost,
		"/vms/api/v1/visitors/"+requestID+"/approve", receptionToken, nil), http.StatusOK)
	assert.Equal(t, string(domain.VisitorApproved), item.Status)

	// 访客轮询看到 APPROVED
	status = decode[service.VisitorStatusResponse](t, env.do(t, http.MethodGet,
		"/vms/api/v1/checkin/status/"+submitted.RequestNumber, "", nil), http.StatusOK)
	assert.Equal(t, string(domain.VisitorApproved), status.Status)

	// 门卫签到、签出
	item = decode[service.VisitorItem](t, env.do(t, http.MethodPost,
		"/vms/api/v1/visitors/"+requestID+"/checkin", guardToken, nil), http.StatusOK)
	assert.Equal(t, string(domain.VisitorCheckedIn), item.Status)

	item = decode[service.VisitorItem](t, env.do(t, http.MethodPost,
		"/vms/api/v1/visitors/"+requestID+"/checkout", guardToken, nil), http.StatusOK)
	assert.Equal(t, string(domain.VisitorCheckedOut), item.Status)

	// 签出后重复签出 => 409
	resp = env.do(t, http.MethodPost, "/vms/api/v1/visitors/"+requestID+"/checkout", guardToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestVisitorFlow_SelfServiceCompany(t *testing.T) {
	env := newTestEnv(t, "")
	adminToken := env.addUser(t, "admin01", domain.RoleAdmin)

	decode[map[string]any](t, env.do(t, http.MethodPost, "/vms/api/v1/admin/companies", adminToken,
		map[string]any{"company_code": "OPEN", "company_name": "Open Co.", "require_approval": false}), http.StatusOK)

	submitted := decode[service.SubmitCheckInResponse](t, env.do(t, http.MethodPost,
		"/vms/api/v1/checkin/submit", "",
		map[string]string{"company_code": "OPEN", "visitor_name": "Li Na", "phone": "139"}), http.StatusCreated)
	assert.Equal(t, string(domain.VisitorCheckedIn), submitted.Status)
}

func TestVisitorFlow_UnknownCompany(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/vms/api/v1/checkin/submit", "",
		map[string]string{"company_code": "NOPE", "visitor_name": "x", "phone": "1"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGatepass(t *testing.T) {
	fakePNG := []byte{0x89, 'P', 'N', 'G'}
	qrServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("data"))
		assert.Equal(t, "256x256", r.URL.Query().Get("size"))
		w.Header().Set("Content-Type", "image/png")
		w.Write(fakePNG)
	}))
	defer qrServer.Close()

	env := newTestEnv(t, qrServer.URL)
	adminToken := env.addUser(t, "admin01", domain.RoleAdmin)
	receptionToken := env.addUser(t, "reception01", domain.RoleReception)

	decode[map[string]any](t, env.do(t, http.MethodPost, "/vms/api/v1/admin/companies", adminToken,
		map[string]any{"company_code": "ACME", "company_name": "Acme Co."}), http.StatusOK)

	submitted := decode[service.SubmitCheckInResponse](t, env.do(t, http.MethodPost,
		"/vms/api/v1/checkin/submit", "",
		map[string]string{"company_code": "ACME", "visitor_name": "Zhang Wei", "phone": "138"}), http.StatusCreated)

	// PENDING 状态不出码 => 409
	resp := env.do(t, http.MethodGet, "/vms/api/v1/checkin/gatepass/"+submitted.RequestNumber, "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// 审批通过后可出码
	v, err := env.visitors.GetByRequestNumber(context.Background(), submitted.RequestNumber)
	require.NoError(t, err)
	decode[service.VisitorItem](t, env.do(t, http.MethodPost,
		"/vms/api/v1/visitors/"+v.RequestID+"/approve", receptionToken, nil), http.StatusOK)

	resp = env.do(t, http.MethodGet, "/vms/api/v1/checkin/gatepass/"+submitted.RequestNumber, "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fakePNG, body)
}
