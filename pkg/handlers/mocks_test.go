package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

// withCaller returns r carrying claims for userID, as auth.Middleware would.
func withCaller(r *http.Request, userID uuid.UUID) *http.Request {
	claims := &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID.String(),
		ID:        "jti-" + userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	return r.WithContext(auth.WithClaims(r.Context(), claims, "test-token"))
}

// passthroughScope stands in for database.WithScopeContext.
func passthroughScope(next http.HandlerFunc) http.HandlerFunc { return next }

// stubAuthService accepts requests whose Authorization header names a user id.
type stubAuthService struct{}

func (stubAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	id := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if id == "" {
		return nil, "", auth.ErrMissingAuthorization
	}
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: id}}, id, nil
}

type mockAccountService struct {
	user      *models.User
	err       error
	gotName   string
	gotEmail  string
	gotPasswd string
}

func (m *mockAccountService) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	m.gotName, m.gotEmail, m.gotPasswd = name, email, password
	return m.user, m.err
}

func (m *mockAccountService) Signin(ctx context.Context, email, password string) (*models.User, error) {
	m.gotEmail, m.gotPasswd = email, password
	return m.user, m.err
}

func (m *mockAccountService) GetCurrent(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return m.user, m.err
}

type mockRevocationStore struct {
	revoked map[string]time.Time
	err     error
}

func (m *mockRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if m.err != nil {
		return m.err
	}
	if m.revoked == nil {
		m.revoked = map[string]time.Time{}
	}
	m.revoked[jti] = expiresAt
	return nil
}

func (m *mockRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}

type mockWorkspaceService struct {
	workspace *models.Workspace
	detail    *services.WorkspaceDetail
	list      []*models.Workspace
	stats     *models.WorkspaceAnalytics
	current   *uuid.UUID
	err       error

	gotCaller    uuid.UUID
	gotWorkspace uuid.UUID
	gotName      string
}

func (m *mockWorkspaceService) Create(ctx context.Context, userID uuid.UUID, name string, description *string) (*models.Workspace, error) {
	m.gotCaller, m.gotName = userID, name
	return m.workspace, m.err
}

func (m *mockWorkspaceService) Update(ctx context.Context, callerID, workspaceID uuid.UUID, name string, description *string) (*models.Workspace, error) {
	m.gotCaller, m.gotWorkspace, m.gotName = callerID, workspaceID, name
	return m.workspace, m.err
}

func (m *mockWorkspaceService) Delete(ctx context.Context, callerID, workspaceID uuid.UUID) (*uuid.UUID, error) {
	m.gotCaller, m.gotWorkspace = callerID, workspaceID
	return m.current, m.err
}

func (m *mockWorkspaceService) Get(ctx context.Context, callerID, workspaceID uuid.UUID) (*services.WorkspaceDetail, error) {
	m.gotCaller, m.gotWorkspace = callerID, workspaceID
	return m.detail, m.err
}

func (m *mockWorkspaceService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error) {
	m.gotCaller = userID
	return m.list, m.err
}

func (m *mockWorkspaceService) Analytics(ctx context.Context, callerID, workspaceID uuid.UUID) (*models.WorkspaceAnalytics, error) {
	m.gotCaller, m.gotWorkspace = callerID, workspaceID
	return m.stats, m.err
}

func (m *mockWorkspaceService) ResetInviteCode(ctx context.Context, callerID, workspaceID uuid.UUID) (*models.Workspace, error) {
	m.gotCaller, m.gotWorkspace = callerID, workspaceID
	return m.workspace, m.err
}

func (m *mockWorkspaceService) SetCurrent(ctx context.Context, userID, workspaceID uuid.UUID) error {
	m.gotCaller, m.gotWorkspace = userID, workspaceID
	return m.err
}

type mockMemberService struct {
	membership *models.Membership
	list       *services.MemberList
	err        error

	gotCaller  uuid.UUID
	gotMember  uuid.UUID
	gotRole    uuid.UUID
	gotVersion *int64
	gotCode    string
}

func (m *mockMemberService) AddMember(ctx context.Context, userID, workspaceID uuid.UUID, role models.RoleName) (*models.Membership, error) {
	return m.membership, m.err
}

func (m *mockMemberService) ChangeRole(ctx context.Context, callerID, workspaceID, memberUserID, roleID uuid.UUID, expectedVersion *int64) (*models.Membership, error) {
	m.gotCaller, m.gotMember, m.gotRole, m.gotVersion = callerID, memberUserID, roleID, expectedVersion
	return m.membership, m.err
}

func (m *mockMemberService) RemoveMember(ctx context.Context, callerID, workspaceID, memberUserID uuid.UUID) error {
	m.gotCaller, m.gotMember = callerID, memberUserID
	return m.err
}

func (m *mockMemberService) RemoveAllMembers(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	return 0, m.err
}

func (m *mockMemberService) JoinByInvite(ctx context.Context, userID uuid.UUID, inviteCode string) (*models.Membership, error) {
	m.gotCaller, m.gotCode = userID, inviteCode
	return m.membership, m.err
}

func (m *mockMemberService) ListMembers(ctx context.Context, callerID, workspaceID uuid.UUID) (*services.MemberList, error) {
	m.gotCaller = callerID
	return m.list, m.err
}

type mockTaskService struct {
	task      *models.Task
	tasks     []*models.Task
	err       error
	gotInput  services.TaskInput
	gotFilter models.TaskFilter
}

func (m *mockTaskService) Create(ctx context.Context, callerID, workspaceID, projectID uuid.UUID, input services.TaskInput) (*models.Task, error) {
	m.gotInput = input
	return m.task, m.err
}

func (m *mockTaskService) Update(ctx context.Context, callerID, workspaceID, projectID, taskID uuid.UUID, input services.TaskInput) (*models.Task, error) {
	m.gotInput = input
	return m.task, m.err
}

func (m *mockTaskService) List(ctx context.Context, callerID, workspaceID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	m.gotFilter = filter
	return m.tasks, m.err
}

func (m *mockTaskService) Get(ctx context.Context, callerID, workspaceID, taskID uuid.UUID) (*models.Task, error) {
	return m.task, m.err
}

func (m *mockTaskService) Delete(ctx context.Context, callerID, workspaceID, taskID uuid.UUID) error {
	return m.err
}

type mockRoleService struct {
	roles []*models.Role
	err   error
}

func (m *mockRoleService) SeedRoles(ctx context.Context) (bool, error) {
	return false, m.err
}

func (m *mockRoleService) List(ctx context.Context) ([]*models.Role, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.roles, nil
}

var (
	_ services.RoleService      = (*mockRoleService)(nil)
	_ services.AccountService   = (*mockAccountService)(nil)
	_ services.WorkspaceService = (*mockWorkspaceService)(nil)
	_ services.MemberService    = (*mockMemberService)(nil)
	_ services.TaskService      = (*mockTaskService)(nil)
	_ auth.RevocationStore      = (*mockRevocationStore)(nil)
	_ auth.AuthService          = stubAuthService{}
)
