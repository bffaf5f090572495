package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/wedding-platform/app"
	"github.com/upb/wedding-platform/config"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Auth: config.AuthConfig{
			JWTSecret:  "routes-test-secret-routes-test-secret",
			JWTIssuer:  "wedding-platform",
			CookieName: "auth_token",
		},
		RateLimit: config.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 600,
			Burst:             100,
			IdleTTL:           time.Minute,
		},
		Audit: config.AuditConfig{
			BufferSize:      16,
			WorkerCount:     1,
			ShutdownTimeout: time.Second,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

type fixture struct {
	server *httptest.Server
	deps   *app.Dependencies
	mock   sqlmock.Sqlmock
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)

	deps, err := app.NewDependenciesFromDB(cfg, db, zap.NewNop())
	require.NoError(t, err)

	server := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(func() {
		server.Close()
		_ = deps.Close(context.Background())
	})
	return &fixture{server: server, deps: deps, mock: mock}
}

func (f *fixture) do(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := f.deps.TokenValidator.Issue(userID, "guest@example.com", time.Hour)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, testConfig())

	t.Run("health check returns healthy", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		data := decode(t, resp)["data"].(map[string]interface{})
		assert.Equal(t, "healthy", data["status"])
	})

	t.Run("readiness pings the database", func(t *testing.T) {
		f.mock.ExpectPing()
		f.mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		resp := f.do(t, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		data := decode(t, resp)["data"].(map[string]interface{})
		checks := data["checks"].(map[string]interface{})
		assert.Equal(t, "healthy", checks["database"])
		assert.Equal(t, "healthy", checks["audit"])
	})

	t.Run("status is public", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/v1/status", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		data := decode(t, resp)["data"].(map[string]interface{})
		assert.Equal(t, app.Version, data["version"])
		assert.Equal(t, "test", data["environment"])
		assert.Contains(t, data, "audit")
	})
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	f := newFixture(t, testConfig())
	groupID := uuid.NewString()
	userID := uuid.NewString()

	testCases := []struct {
		name   string
		method string
		path   string
	}{
		{"check permission", http.MethodPost, "/api/v1/access/check"},
		{"check roles", http.MethodGet, "/api/v1/access/roles?role=host"},
		{"list accessible groups", http.MethodGet, "/api/v1/access/groups"},
		{"check group", http.MethodGet, "/api/v1/access/groups/" + groupID},
		{"list groups", http.MethodGet, "/api/v1/groups"},
		{"create group", http.MethodPost, "/api/v1/groups"},
		{"get group", http.MethodGet, "/api/v1/groups/" + groupID},
		{"list members", http.MethodGet, "/api/v1/groups/" + groupID + "/members"},
		{"add member", http.MethodPost, "/api/v1/groups/" + groupID + "/members"},
		{"update member", http.MethodPut, "/api/v1/groups/" + groupID + "/members/" + userID},
		{"remove member", http.MethodDelete, "/api/v1/groups/" + groupID + "/members/" + userID},
		{"current user", http.MethodGet, "/api/v1/users/me"},
		{"update current user", http.MethodPut, "/api/v1/users/me"},
		{"list users", http.MethodGet, "/api/v1/users"},
		{"change role", http.MethodPut, "/api/v1/users/" + userID + "/role"},
		{"audit logs", http.MethodGet, "/api/v1/audit/logs"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.do(t, tc.method, tc.path, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "endpoint: %s %s", tc.method, tc.path)
		})
	}

	t.Run("bad token", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/v1/users/me", "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestSuperAdminRoutesRejectGuests(t *testing.T) {
	f := newFixture(t, testConfig())
	guestID := uuid.New()

	for _, path := range []string{"/api/v1/users", "/api/v1/audit/logs"} {
		t.Run(path, func(t *testing.T) {
			f.mock.ExpectQuery("SELECT role FROM users WHERE id").
				WithArgs(guestID).
				WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("guest"))

			resp := f.do(t, http.MethodGet, path, f.token(t, guestID))
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "INSUFFICIENT_PERMISSIONS", decode(t, resp)["code"])
		})
	}
}

func TestAccessRolesForAuthenticatedCaller(t *testing.T) {
	f := newFixture(t, testConfig())
	hostID := uuid.New()

	f.mock.ExpectQuery("SELECT role FROM users WHERE id").
		WithArgs(hostID).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("host"))

	resp := f.do(t, http.MethodGet, "/api/v1/access/roles?role=host", f.token(t, hostID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decode(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, true, data["has_role"])
	assert.Equal(t, "host", data["user_role"])
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestNotFound(t *testing.T) {
	f := newFixture(t, testConfig())

	resp := f.do(t, http.MethodGet, "/api/v1/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decode(t, resp)["code"])
}

func TestCORSMiddleware(t *testing.T) {
	f := newFixture(t, testConfig())

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/v1/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	f := newFixture(t, testConfig())

	t.Run("generated", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/healthz", "")
		_, err := uuid.Parse(resp.Header.Get("X-Request-ID"))
		assert.NoError(t, err)
	})

	t.Run("propagated", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, f.server.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Header.Set("X-Request-ID", "trace-abc")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "trace-abc", resp.Header.Get("X-Request-ID"))
	})
}

func TestRateLimitedAPI(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerMinute = 1
	cfg.RateLimit.Burst = 1
	f := newFixture(t, cfg)
	token := f.token(t, uuid.New())

	// the first request spends the only token; the handler fails on lookup
	first := f.do(t, http.MethodGet, "/api/v1/users/me", token)
	assert.NotEqual(t, http.StatusTooManyRequests, first.StatusCode)

	second := f.do(t, http.MethodGet, "/api/v1/users/me", token)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.NotEmpty(t, second.Header.Get("Retry-After"))
}

func TestRateLimitAppliesBeforeAuthentication(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerMinute = 1
	cfg.RateLimit.Burst = 1
	f := newFixture(t, cfg)

	first := f.do(t, http.MethodGet, "/api/v1/users/me", "forged-token")
	assert.Equal(t, http.StatusUnauthorized, first.StatusCode)

	second := f.do(t, http.MethodGet, "/api/v1/users/me", "forged-token")
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.NotEmpty(t, second.Header.Get("Retry-After"))
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false
	f := newFixture(t, cfg)

	assert.Nil(t, f.deps.RateLimitMiddleware)
	for i := 0; i < 3; i++ {
		resp := f.do(t, http.MethodGet, "/api/v1/status", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, testConfig())

	resp := f.do(t, http.MethodDelete, "/api/v1/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.True(t, strings.Contains(resp.Header.Get("Content-Type"), "application/json"))
}
