package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/sentinel-server/internal/domain"
	"github.com/xela07ax/sentinel-server/internal/infra"
	"github.com/xela07ax/sentinel-server/internal/server/handler"
)

const testKey = "valid-admin-key"

type fakeVerifier struct{}

func (fakeVerifier) VerifyKey(k string) bool   { return k == testKey }
func (fakeVerifier) VerifyToken(t string) bool { return t == "valid-token" }

type fakeInspector struct{}

func (fakeInspector) Inspect(_ context.Context, item *domain.InboundItem) *domain.ServerOut {
	return &domain.ServerOut{
		RequestID:      "req-1",
		Host:           item.Host,
		ModifiedPrompt: item.Prompt,
		Allow:          true,
		Action:         domain.ActionAllow,
	}
}

type fakeQuery struct{}

func (fakeQuery) Logs(context.Context, domain.LogFilter) ([]domain.LogRecord, error) {
	return []domain.LogRecord{{
		RequestID: "r1",
		Entities:  []domain.Entity{{Label: "PHONE", Value: "010-1234-5678"}},
	}}, nil
}
func (fakeQuery) Summary(context.Context) (*domain.DashboardSummary, error) {
	return &domain.DashboardSummary{TotalSensitive: 5}, nil
}
func (fakeQuery) ReasonTop(context.Context, int) ([]domain.ReasonEntry, error) { return nil, nil }
func (fakeQuery) ReasonSummary(context.Context) (*domain.ReasonSummary, error) {
	return &domain.ReasonSummary{}, nil
}
func (fakeQuery) NetworkSummary(context.Context) (*domain.NetworkSummary, error) {
	return &domain.NetworkSummary{}, nil
}

type fakeSettings struct{}

func (fakeSettings) Get(context.Context) (*domain.Settings, error) {
	return &domain.Settings{Config: domain.DefaultSettings(), Version: 3}, nil
}
func (fakeSettings) Update(_ context.Context, cfg domain.SettingsConfig, version int) (*domain.Settings, error) {
	if version != 3 {
		return nil, domain.ErrVersionConflict
	}
	return &domain.Settings{Config: cfg, Version: 4}, nil
}

type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Username == "admin" && req.Password == "pw" {
		return &domain.LoginResponse{APIKey: testKey, Username: "admin"}, nil
	}
	return nil, domain.ErrInvalidCredentials
}
func (fakeAuth) ChangeUsername(context.Context, string) (*domain.ChangeResponse, error) {
	return &domain.ChangeResponse{Username: "new"}, nil
}
func (fakeAuth) ChangePassword(context.Context, string) (*domain.ChangeResponse, error) {
	return &domain.ChangeResponse{}, nil
}
func (fakeAuth) Me() (*domain.AdminAccount, error) {
	return &domain.AdminAccount{Username: "admin", Version: 1}, nil
}

type fakeMcp struct{}

func (fakeMcp) Ingest(context.Context, *domain.McpInbound) (*domain.McpInResponse, error) {
	return &domain.McpInResponse{SnapshotID: "s1", Stored: 1, McpScope: domain.McpScopeLocal}, nil
}
func (fakeMcp) Summary(context.Context) (*domain.McpConfigSummary, error) {
	return &domain.McpConfigSummary{TotalSnapshots: 2}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := NewServer(
		&infra.Config{},
		zap.NewNop(),
		fakeVerifier{},
		handler.NewIngestHandler(fakeInspector{}),
		handler.NewQueryHandler(fakeQuery{}),
		handler.NewSettingsHandler(fakeSettings{}),
		handler.NewAuthHandler(fakeAuth{}),
		handler.NewMcpHandler(fakeMcp{}),
		nil,
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doReq(t *testing.T, ts *httptest.Server, method, path, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAdminRoutesRequireKey(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/api/summary", "/api/logs", "/api/settings",
		"/api/reason/top5", "/api/reason/summary",
		"/api/network/summary", "/api/mcp/config_summary", "/api/auth/me",
	} {
		resp := doReq(t, ts, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestAdminRouteWithValidKey(t *testing.T) {
	ts := newTestServer(t)

	resp := doReq(t, ts, http.MethodGet, "/api/summary", testKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sum domain.DashboardSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, int64(5), sum.TotalSensitive)
}

func TestLogsHideEntityValues(t *testing.T) {
	ts := newTestServer(t)

	resp := doReq(t, ts, http.MethodGet, "/api/logs", testKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var buf strings.Builder
	_, err := io.Copy(&buf, resp.Body)
	require.NoError(t, err)

	// Исходные значения сущностей в админ-выдачу не попадают, только метки
	body := buf.String()
	assert.NotContains(t, body, "010-1234-5678")
	assert.Contains(t, body, "PHONE")
}

func TestAdminRouteWithBearerToken(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/summary", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer valid-token")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAgentIngestIsPublic(t *testing.T) {
	ts := newTestServer(t)

	resp := doReq(t, ts, http.MethodPost, "/api/logs", "",
		`{"prompt": "hello", "host": "chatgpt.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out domain.ServerOut
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "req-1", out.RequestID)
	assert.True(t, out.Allow)
}

func TestIngestRejectsEmptyBody(t *testing.T) {
	ts := newTestServer(t)

	resp := doReq(t, ts, http.MethodPost, "/api/logs", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	resp := doReq(t, ts, http.MethodPost, "/api/auth/login", "",
		`{"username": "admin", "password": "pw"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var lr domain.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lr))
	assert.Equal(t, testKey, lr.APIKey)

	bad := doReq(t, ts, http.MethodPost, "/api/auth/login", "",
		`{"username": "admin", "password": "nope"}`)
	assert.Equal(t, http.StatusUnauthorized, bad.StatusCode)
}

func TestSettingsVersionConflict(t *testing.T) {
	ts := newTestServer(t)

	ok := doReq(t, ts, http.MethodPut, "/api/settings", testKey,
		`{"config": {"response_method": "mask"}, "version": 3}`)
	assert.Equal(t, http.StatusOK, ok.StatusCode)

	stale := doReq(t, ts, http.MethodPut, "/api/settings", testKey,
		`{"config": {"response_method": "mask"}, "version": 2}`)
	assert.Equal(t, http.StatusConflict, stale.StatusCode)
}

func TestMcpIngestPublic(t *testing.T) {
	ts := newTestServer(t)

	resp := doReq(t, ts, http.MethodPost, "/api/mcp", "",
		`{"status": "activate", "host": "claude", "pc_name": "pc"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	badStatus := doReq(t, ts, http.MethodPost, "/api/mcp", "",
		`{"status": "bogus"}`)
	assert.Equal(t, http.StatusBadRequest, badStatus.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp := doReq(t, ts, http.MethodGet, "/api/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)
	resp := doReq(t, ts, http.MethodGet, "/api/healthz", "", "")

	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "cdn.jsdelivr.net")
}
