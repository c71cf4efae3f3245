package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sitepass/internal/domain"
	"sitepass/internal/repository"
	"sitepass/internal/service"
	"sitepass/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 测试脚手架：内存Repository + 种子数据 + 完整路由

type testEnv struct {
	server    *httptest.Server
	companies *repository.MemoryCompaniesRepo
	visitors  *repository.MemoryVisitorsRepo
	users     *repository.MemoryUsersRepo
}

// newTestEnv 组装完整 HTTP 栈；qrURL 为空时门禁二维码路由不可用
func newTestEnv(t *testing.T, qrURL string) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	permits := repository.NewMemoryPermitsRepo()
	visitors := repository.NewMemoryVisitorsRepo()
	preApprovals := repository.NewMemoryPreApprovalsRepo()
	meters := repository.NewMemoryMetersRepo()
	companies := repository.NewMemoryCompaniesRepo()
	roles := repository.NewMemoryRolesRepo()
	users := repository.NewMemoryUsersRepo()

	_, err := service.NewSeedService(roles, users, logger).Seed(context.Background())
	require.NoError(t, err)

	directory := service.NewCompanyDirectory(companies, store.NewMemoryKV(), time.Minute, logger)
	authSvc := service.NewAuthService(users, "test-secret", time.Hour, logger)
	visitorSvc := service.NewVisitorService(visitors, preApprovals, roles, directory, 24*time.Hour, 5, logger)
	qr := service.NewQRClient(qrURL, 256, logger)

	router := NewRouter(logger)
	auth := NewAuthMiddleware(authSvc, logger)
	router.RegisterHealthRoute()
	router.RegisterAuthRoutes(NewAuthHandler(authSvc, logger))
	visitorHandler := NewVisitorHandler(visitorSvc, service.NewGatepassService(visitorSvc, qr, logger), logger)
	router.RegisterCheckinRoutes(visitorHandler)
	router.RegisterVisitorRoutes(visitorHandler, auth)
	router.RegisterPermitRoutes(NewPermitHandler(service.NewPermitService(permits, roles, logger), logger), auth)
	router.RegisterPreApprovalRoutes(NewPreApprovalHandler(
		service.NewPreApprovalService(preApprovals, roles, directory, logger), logger), auth)
	meterSvc := service.NewMeterService(meters, roles, logger)
	router.RegisterMeterRoutes(NewMeterHandler(meterSvc,
		service.NewExportService(meters, roles, 1000, logger), logger), auth)
	router.RegisterDashboardRoutes(NewDashboardHandler(
		service.NewDashboardService(permits, visitors, meters, roles, logger), logger), auth)
	router.RegisterAdminRoutes(NewAdminHandler(roles, directory, logger), auth)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, companies: companies, visitors: visitors, users: users}
}

// addUser 建一个指定角色的用户并返回登录令牌
func (e *testEnv) addUser(t *testing.T, account, roleCode string) string {
	t.Helper()
	hash, err := service.HashPassword("pw")
	require.NoError(t, err)
	_, err = e.users.Upsert(context.Background(), &domain.User{
		Account: account, DisplayName: account, PasswordHash: hash,
		RoleCode: roleCode, IsActive: true,
	})
	require.NoError(t, err)

	resp := e.do(t, http.MethodPost, "/vms/api/v1/auth/login", "",
		map[string]string{"account": account, "password": "pw"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Result[service.LoginResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Result.Token)
	return out.Result.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// decode 校验 HTTP 状态码并解出 Result.result
func decode[T any](t *testing.T, resp *http.Response, wantStatus int) T {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, wantStatus, resp.StatusCode)
	var out Result[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Result
}
