//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/rbac"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/testhelpers"
)

// repoTestContext holds a scoped context on a reset database with the role
// catalog seeded.
type repoTestContext struct {
	t   *testing.T
	ctx context.Context

	roles      RoleRepository
	users      UserRepository
	workspaces WorkspaceRepository
	members    MemberRepository
	projects   ProjectRepository
	tasks      TaskRepository
}

func setupRepoTest(t *testing.T) *repoTestContext {
	t.Helper()

	testDB := testhelpers.GetTestDB(t)
	testDB.Reset(t)

	tc := &repoTestContext{
		t:          t,
		ctx:        testDB.ScopedContext(t),
		roles:      NewRoleRepository(),
		users:      NewUserRepository(),
		workspaces: NewWorkspaceRepository(),
		members:    NewMemberRepository(),
		projects:   NewProjectRepository(),
		tasks:      NewTaskRepository(),
	}
	tc.ensureRoles()
	return tc
}

// ensureRoles inserts the catalog once per database.
func (tc *repoTestContext) ensureRoles() {
	tc.t.Helper()

	count, err := tc.roles.Count(tc.ctx)
	require.NoError(tc.t, err)
	if count > 0 {
		return
	}
	for _, name := range models.AllRoles() {
		perms, err := rbac.PermissionsFor(name)
		require.NoError(tc.t, err)
		require.NoError(tc.t, tc.roles.Create(tc.ctx, &models.Role{Name: name, Permissions: perms.List()}))
	}
}

func (tc *repoTestContext) role(name models.RoleName) *models.Role {
	tc.t.Helper()
	role, err := tc.roles.GetByName(tc.ctx, name)
	require.NoError(tc.t, err)
	return role
}

func (tc *repoTestContext) createUser(name string) *models.User {
	tc.t.Helper()
	user := &models.User{
		Name:         name,
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "hash",
		IsActive:     true,
	}
	require.NoError(tc.t, tc.users.Create(tc.ctx, user))
	return user
}

func (tc *repoTestContext) createWorkspace(owner *models.User, name string) *models.Workspace {
	tc.t.Helper()
	ws := &models.Workspace{
		Name:       name,
		OwnerID:    owner.ID,
		InviteCode: uuid.NewString()[:8],
	}
	require.NoError(tc.t, tc.workspaces.Create(tc.ctx, ws))
	tc.addMember(ws, owner, models.RoleOwner)
	return ws
}

func (tc *repoTestContext) addMember(ws *models.Workspace, user *models.User, role models.RoleName) *models.Membership {
	tc.t.Helper()
	m := &models.Membership{WorkspaceID: ws.ID, UserID: user.ID, RoleID: tc.role(role).ID}
	require.NoError(tc.t, tc.members.Create(tc.ctx, m))
	return m
}

func (tc *repoTestContext) createProject(ws *models.Workspace, creator *models.User, name string) *models.Project {
	tc.t.Helper()
	p := &models.Project{WorkspaceID: ws.ID, Name: name, Emoji: models.DefaultProjectEmoji, CreatedBy: &creator.ID}
	require.NoError(tc.t, tc.projects.Create(tc.ctx, p))
	return p
}

func (tc *repoTestContext) createTask(p *models.Project, creator *models.User, status models.TaskStatus, due *time.Time) *models.Task {
	tc.t.Helper()
	task := &models.Task{
		TaskCode:    "task-" + uuid.NewString()[:6],
		WorkspaceID: p.WorkspaceID,
		ProjectID:   p.ID,
		Title:       "Task",
		Status:      status,
		Priority:    models.TaskPriorityMedium,
		CreatedBy:   creator.ID,
		DueDate:     due,
	}
	require.NoError(tc.t, tc.tasks.Create(tc.ctx, task))
	return task
}
