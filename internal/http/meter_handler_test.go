package httpapi

import (
	"bytes"
	"encoding/csv"
	"io"
	"net/http"
	"testing"

	"sitepass/internal/domain"
	"sitepass/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeterFlow_EndToEnd(t *testing.T) {
	env := newTestEnv(t, "")
	engineerToken := env.addUser(t, "eng01", domain.RoleEngineer)
	adminToken := env.addUser(t, "admin01", domain.RoleAdmin)

	// 录入
	created := decode[service.ReadingItem](t, env.do(t, http.MethodPost,
		"/vms/api/v1/meters/readings", engineerToken,
		map[string]string{
			"meter_serial":     "E-001",
			"meter_type":       "electricity",
			"reading_value":    "1250.75",
			"previous_reading": "1100.50",
			"reading_date":     "2026-08-31",
		}), http.StatusCreated)
	assert.Equal(t, "150.25", created.Consumption)

	// 读数回退 => 400
	resp := env.do(t, http.MethodPost, "/vms/api/v1/meters/readings", engineerToken,
		map[string]string{
			"meter_serial": "E-001", "meter_type": "electricity",
			"reading_value": "100", "previous_reading": "200",
		})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// 列表
	items := decode[[]service.ReadingItem](t, env.do(t, http.MethodGet,
		"/vms/api/v1/meters/readings?meter_type=electricity", engineerToken, nil), http.StatusOK)
	require.Len(t, items, 1)

	// 工程师无核验权限 => 403
	resp = env.do(t, http.MethodPost, "/vms/api/v1/meters/readings/"+created.ReadingID+"/verify", engineerToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// 管理员核验，一次成功，二次 409
	verified := decode[service.ReadingItem](t, env.do(t, http.MethodPost,
		"/vms/api/v1/meters/readings/"+created.ReadingID+"/verify", adminToken, nil), http.StatusOK)
	assert.True(t, verified.IsVerified)

	resp = env.do(t, http.MethodPost, "/vms/api/v1/meters/readings/"+created.ReadingID+"/verify", adminToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMeterExport_CSV(t *testing.T) {
	env := newTestEnv(t, "")
	engineerToken := env.addUser(t, "eng01", domain.RoleEngineer)

	decode[service.ReadingItem](t, env.do(t, http.MethodPost,
		"/vms/api/v1/meters/readings", engineerToken,
		map[string]string{
			"meter_serial": "W-001", "meter_type": "water",
			"reading_value": "80.5", "previous_reading": "50",
		}), http.StatusCreated)

	resp := env.do(t, http.MethodGet, "/vms/api/v1/meters/export?format=csv", engineerToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "W-001", rows[1][0])
	assert.Equal(t, "30.5", rows[1][4])
}

func TestMeterExport_UnknownFormat(t *testing.T) {
	env := newTestEnv(t, "")
	token := env.addUser(t, "eng01", domain.RoleEngineer)

	resp := env.do(t, http.MethodGet, "/vms/api/v1/meters/export?format=pdf", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
