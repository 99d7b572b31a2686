package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/config"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
)

func seededRoles() []*models.Role {
	var roles []*models.Role
	for _, name := range models.AllRoles() {
		roles = append(roles, &models.Role{Name: name})
	}
	return roles
}

func pingThrough(t *testing.T, roles *mockRoleService) (int, PingResponse) {
	t.Helper()
	cfg := &config.Config{Version: "test-version", Env: "test"}
	mux := http.NewServeMux()
	NewHealthHandler(cfg, roles, zap.NewNop()).RegisterRoutes(mux, passthroughScope)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	var resp PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp
}

func TestHealthHandler_Health(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(&config.Config{}, &mockRoleService{}, zap.NewNop()).RegisterRoutes(mux, passthroughScope)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHealthHandler_Ping(t *testing.T) {
	code, resp := pingThrough(t, &mockRoleService{roles: seededRoles()})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-version", resp.Version)
	assert.Equal(t, "ekaya-teamwork", resp.Service)
	assert.Equal(t, "test", resp.Environment)
	assert.Equal(t, len(models.AllRoles()), resp.SeededRoles)
}

func TestHealthHandler_Ping_UnseededCatalog(t *testing.T) {
	code, resp := pingThrough(t, &mockRoleService{roles: seededRoles()[:1]})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, 1, resp.SeededRoles)
}

func TestHealthHandler_Ping_LookupFails(t *testing.T) {
	code, resp := pingThrough(t, &mockRoleService{err: errors.New("pool closed")})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Zero(t, resp.SeededRoles)
}
