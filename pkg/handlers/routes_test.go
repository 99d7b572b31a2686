package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
)

func newTestMux(workspaces *mockWorkspaceService, members *mockMemberService) *http.ServeMux {
	logger := zap.NewNop()
	authMiddleware := auth.NewMiddleware(stubAuthService{}, logger)

	mux := http.NewServeMux()
	NewWorkspacesHandler(workspaces, logger).RegisterRoutes(mux, authMiddleware, passthroughScope)
	NewMembersHandler(members, logger).RegisterRoutes(mux, authMiddleware, passthroughScope)
	return mux
}

func TestRoutes_RequireAuth(t *testing.T) {
	mux := newTestMux(&mockWorkspaceService{}, &mockMemberService{})

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/workspaces"},
		{http.MethodDelete, "/api/workspaces/" + uuid.NewString()},
		{http.MethodGet, "/api/workspaces/" + uuid.NewString() + "/members"},
		{http.MethodPost, "/api/invites/AbCd1234/join"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRoutes_PathValuesReachHandlers(t *testing.T) {
	workspaces := &mockWorkspaceService{list: []*models.Workspace{}}
	members := &mockMemberService{}
	mux := newTestMux(workspaces, members)

	caller, workspaceID, memberID := uuid.New(), uuid.New(), uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/workspaces/"+workspaceID.String()+"/members/"+memberID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+caller.String())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, caller, members.gotCaller)
	assert.Equal(t, memberID, members.gotMember)

	req = httptest.NewRequest(http.MethodGet, "/api/workspaces", nil)
	req.Header.Set("Authorization", "Bearer "+caller.String())
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, caller, workspaces.gotCaller)
}
