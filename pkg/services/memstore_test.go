package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/audit"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/metrics"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/repositories"
)

// memStore is an in-memory stand-in for the database. memTransactor snapshots
// its state on entry and restores it when fn fails, so tests observe the same
// all-or-nothing behaviour Postgres gives.
type memStore struct {
	state *memState
	// failOn injects an error into the named repository method,
	// e.g. "tasks.DeleteByWorkspace".
	failOn map[string]error
	// failOnce is like failOn but clears after the first injected error.
	failOnce map[string]error
	clock    time.Time
}

type memberKey struct {
	workspaceID uuid.UUID
	userID      uuid.UUID
}

type memState struct {
	roles      map[uuid.UUID]models.Role
	users      map[uuid.UUID]models.User
	workspaces map[uuid.UUID]models.Workspace
	members    map[memberKey]models.Membership
	projects   map[uuid.UUID]models.Project
	tasks      map[uuid.UUID]models.Task
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			roles:      map[uuid.UUID]models.Role{},
			users:      map[uuid.UUID]models.User{},
			workspaces: map[uuid.UUID]models.Workspace{},
			members:    map[memberKey]models.Membership{},
			projects:   map[uuid.UUID]models.Project{},
			tasks:      map[uuid.UUID]models.Task{},
		},
		failOn:   map[string]error{},
		failOnce: map[string]error{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies the maps. Stored values are structs, and nothing mutates the
// slices or pointers they share, so a shallow value copy is a full snapshot.
func (s *memState) clone() *memState {
	return &memState{
		roles:      cloneMap(s.roles),
		users:      cloneMap(s.users),
		workspaces: cloneMap(s.workspaces),
		members:    cloneMap(s.members),
		projects:   cloneMap(s.projects),
		tasks:      cloneMap(s.tasks),
	}
}

func (s *memStore) fail(method string) error {
	if err, ok := s.failOnce[method]; ok {
		delete(s.failOnce, method)
		return err
	}
	return s.failOn[method]
}

// tick returns strictly increasing timestamps so orderings are deterministic.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// uniqueViolation builds the error Postgres returns for a unique violation.
func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

type memTxKey struct{}

type memTransactor struct {
	store *memStore
	calls int
}

func (t *memTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	t.calls++
	snapshot := t.store.state.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.store.state = snapshot
		return err
	}
	return nil
}

// --- roles ---

type memRoleRepo struct{ s *memStore }

func (r *memRoleRepo) Count(ctx context.Context) (int, error) {
	if err := r.s.fail("roles.Count"); err != nil {
		return 0, err
	}
	return len(r.s.state.roles), nil
}

func (r *memRoleRepo) Create(ctx context.Context, role *models.Role) error {
	if err := r.s.fail("roles.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.state.roles {
		if existing.Name == role.Name {
			return uniqueViolation("roles_name_key")
		}
	}
	role.ID = uuid.New()
	role.CreatedAt = r.s.tick()
	r.s.state.roles[role.ID] = *role
	return nil
}

func (r *memRoleRepo) List(ctx context.Context) ([]*models.Role, error) {
	var out []*models.Role
	for _, name := range models.AllRoles() {
		for _, role := range r.s.state.roles {
			if role.Name == name {
				role := role
				out = append(out, &role)
			}
		}
	}
	return out, nil
}

func (r *memRoleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	role, ok := r.s.state.roles[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &role, nil
}

func (r *memRoleRepo) GetByName(ctx context.Context, name models.RoleName) (*models.Role, error) {
	for _, role := range r.s.state.roles {
		if role.Name == name {
			return &role, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// --- users ---

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	if err := r.s.fail("users.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.state.users {
		if existing.Email == user.Email {
			return apperrors.ErrEmailTaken
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.s.tick()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.state.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.s.state.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &user, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.s.state.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memUserRepo) SetCurrentWorkspace(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID) error {
	if err := r.s.fail("users.SetCurrentWorkspace"); err != nil {
		return err
	}
	user, ok := r.s.state.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if workspaceID != nil {
		id := *workspaceID
		workspaceID = &id
	}
	user.CurrentWorkspaceID = workspaceID
	r.s.state.users[userID] = user
	return nil
}

func (r *memUserRepo) RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	user, ok := r.s.state.users[userID]
	if !ok {
		return apperrors.ErrNotFound
	}
	user.IsActive = true
	user.LastLogin = &at
	r.s.state.users[userID] = user
	return nil
}

// --- workspaces ---

type memWorkspaceRepo struct{ s *memStore }

func (r *memWorkspaceRepo) Create(ctx context.Context, ws *models.Workspace) error {
	if err := r.s.fail("workspaces.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.state.workspaces {
		if existing.InviteCode == ws.InviteCode {
			return repositories.ErrInviteCodeTaken
		}
	}
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	now := r.s.tick()
	ws.CreatedAt = now
	ws.UpdatedAt = now
	r.s.state.workspaces[ws.ID] = *ws
	return nil
}

func (r *memWorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	ws, ok := r.s.state.workspaces[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &ws, nil
}

func (r *memWorkspaceRepo) GetByInviteCode(ctx context.Context, code string) (*models.Workspace, error) {
	for _, ws := range r.s.state.workspaces {
		if ws.InviteCode == code {
			return &ws, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memWorkspaceRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error) {
	var out []*models.Workspace
	for key := range r.s.state.members {
		if key.userID == userID {
			ws := r.s.state.workspaces[key.workspaceID]
			out = append(out, &ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memWorkspaceRepo) Update(ctx context.Context, ws *models.Workspace) error {
	if _, ok := r.s.state.workspaces[ws.ID]; !ok {
		return apperrors.ErrNotFound
	}
	ws.UpdatedAt = r.s.tick()
	r.s.state.workspaces[ws.ID] = *ws
	return nil
}

func (r *memWorkspaceRepo) UpdateInviteCode(ctx context.Context, id uuid.UUID, code string) error {
	if err := r.s.fail("workspaces.UpdateInviteCode"); err != nil {
		return err
	}
	for otherID, other := range r.s.state.workspaces {
		if otherID != id && other.InviteCode == code {
			return repositories.ErrInviteCodeTaken
		}
	}
	ws, ok := r.s.state.workspaces[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	ws.InviteCode = code
	r.s.state.workspaces[id] = ws
	return nil
}

func (r *memWorkspaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.s.fail("workspaces.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.state.workspaces[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.s.state.workspaces, id)
	for uid, user := range r.s.state.users {
		if user.CurrentWorkspaceID != nil && *user.CurrentWorkspaceID == id {
			user.CurrentWorkspaceID = nil
			r.s.state.users[uid] = user
		}
	}
	return nil
}

// --- members ---

type memMemberRepo struct{ s *memStore }

func (r *memMemberRepo) withRole(m models.Membership) *models.Membership {
	m.RoleName = r.s.state.roles[m.RoleID].Name
	return &m
}

func (r *memMemberRepo) Create(ctx context.Context, m *models.Membership) error {
	if err := r.s.fail("members.Create"); err != nil {
		return err
	}
	key := memberKey{m.WorkspaceID, m.UserID}
	if _, ok := r.s.state.members[key]; ok {
		return apperrors.ErrAlreadyMember
	}
	m.ID = uuid.New()
	m.Version = 1
	m.JoinedAt = r.s.tick()
	r.s.state.members[key] = *m
	return nil
}

func (r *memMemberRepo) Get(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Membership, error) {
	m, ok := r.s.state.members[memberKey{workspaceID, userID}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.withRole(m), nil
}

func (r *memMemberRepo) GetForUpdate(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Membership, error) {
	return r.Get(ctx, workspaceID, userID)
}

func (r *memMemberRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Member, error) {
	var out []*models.Member
	for key, m := range r.s.state.members {
		if key.workspaceID != workspaceID {
			continue
		}
		user := r.s.state.users[key.userID]
		out = append(out, &models.Member{
			Membership:     *r.withRole(m),
			Name:           user.Name,
			Email:          user.Email,
			ProfilePicture: user.ProfilePicture,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (r *memMemberRepo) CountByRole(ctx context.Context, workspaceID uuid.UUID, role models.RoleName) (int, error) {
	n := 0
	for key, m := range r.s.state.members {
		if key.workspaceID == workspaceID && r.s.state.roles[m.RoleID].Name == role {
			n++
		}
	}
	return n, nil
}

func (r *memMemberRepo) UpdateRole(ctx context.Context, workspaceID, userID, roleID uuid.UUID, expectedVersion int64) (*models.Membership, error) {
	if err := r.s.fail("members.UpdateRole"); err != nil {
		return nil, err
	}
	key := memberKey{workspaceID, userID}
	m, ok := r.s.state.members[key]
	if !ok || m.Version != expectedVersion {
		return nil, apperrors.ErrStaleMembership
	}
	m.RoleID = roleID
	m.Version++
	r.s.state.members[key] = m
	return r.withRole(m), nil
}

func (r *memMemberRepo) Delete(ctx context.Context, workspaceID, userID uuid.UUID) error {
	if err := r.s.fail("members.Delete"); err != nil {
		return err
	}
	key := memberKey{workspaceID, userID}
	if _, ok := r.s.state.members[key]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.s.state.members, key)
	return nil
}

func (r *memMemberRepo) DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	if err := r.s.fail("members.DeleteByWorkspace"); err != nil {
		return 0, err
	}
	var n int64
	for key := range r.s.state.members {
		if key.workspaceID == workspaceID {
			delete(r.s.state.members, key)
			n++
		}
	}
	return n, nil
}

func (r *memMemberRepo) FindOtherWorkspace(ctx context.Context, userID, excludeID uuid.UUID) (*uuid.UUID, error) {
	var best *models.Membership
	for key, m := range r.s.state.members {
		if key.userID != userID || key.workspaceID == excludeID {
			continue
		}
		if best == nil || m.JoinedAt.Before(best.JoinedAt) {
			m := m
			best = &m
		}
	}
	if best == nil {
		return nil, nil
	}
	id := best.WorkspaceID
	return &id, nil
}

// --- projects ---

type memProjectRepo struct{ s *memStore }

func (r *memProjectRepo) Create(ctx context.Context, p *models.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Emoji == "" {
		p.Emoji = models.DefaultProjectEmoji
	}
	now := r.s.tick()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.s.state.projects[p.ID] = *p
	return nil
}

func (r *memProjectRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Project, error) {
	p, ok := r.s.state.projects[id]
	if !ok || p.WorkspaceID != workspaceID {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (r *memProjectRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error) {
	var out []*models.Project
	for _, p := range r.s.state.projects {
		if p.WorkspaceID == workspaceID {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memProjectRepo) Update(ctx context.Context, p *models.Project) error {
	if _, err := r.GetByID(ctx, p.WorkspaceID, p.ID); err != nil {
		return err
	}
	p.UpdatedAt = r.s.tick()
	r.s.state.projects[p.ID] = *p
	return nil
}

func (r *memProjectRepo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	if err := r.s.fail("projects.Delete"); err != nil {
		return err
	}
	if _, err := r.GetByID(ctx, workspaceID, id); err != nil {
		return err
	}
	delete(r.s.state.projects, id)
	return nil
}

func (r *memProjectRepo) DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	if err := r.s.fail("projects.DeleteByWorkspace"); err != nil {
		return 0, err
	}
	var n int64
	for id, p := range r.s.state.projects {
		if p.WorkspaceID == workspaceID {
			delete(r.s.state.projects, id)
			n++
		}
	}
	return n, nil
}

// --- tasks ---

type memTaskRepo struct{ s *memStore }

func (r *memTaskRepo) Create(ctx context.Context, t *models.Task) error {
	if err := r.s.fail("tasks.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.state.tasks {
		if existing.TaskCode == t.TaskCode {
			return repositories.ErrTaskCodeTaken
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := r.s.tick()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.s.state.tasks[t.ID] = *t
	return nil
}

func (r *memTaskRepo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Task, error) {
	t, ok := r.s.state.tasks[id]
	if !ok || t.WorkspaceID != workspaceID {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (r *memTaskRepo) List(ctx context.Context, workspaceID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range r.s.state.tasks {
		if t.WorkspaceID != workspaceID {
			continue
		}
		if filter.ProjectID != nil && t.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
			continue
		}
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memTaskRepo) Update(ctx context.Context, t *models.Task) error {
	if _, err := r.GetByID(ctx, t.WorkspaceID, t.ID); err != nil {
		return err
	}
	t.UpdatedAt = r.s.tick()
	r.s.state.tasks[t.ID] = *t
	return nil
}

func (r *memTaskRepo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, workspaceID, id); err != nil {
		return err
	}
	delete(r.s.state.tasks, id)
	return nil
}

func (r *memTaskRepo) DeleteByProject(ctx context.Context, workspaceID, projectID uuid.UUID) (int64, error) {
	if err := r.s.fail("tasks.DeleteByProject"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range r.s.state.tasks {
		if t.WorkspaceID == workspaceID && t.ProjectID == projectID {
			delete(r.s.state.tasks, id)
			n++
		}
	}
	return n, nil
}

func (r *memTaskRepo) DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	if err := r.s.fail("tasks.DeleteByWorkspace"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range r.s.state.tasks {
		if t.WorkspaceID == workspaceID {
			delete(r.s.state.tasks, id)
			n++
		}
	}
	return n, nil
}

func (r *memTaskRepo) Analytics(ctx context.Context, workspaceID uuid.UUID, projectID *uuid.UUID, now time.Time) (*models.WorkspaceAnalytics, error) {
	out := &models.WorkspaceAnalytics{}
	for _, t := range r.s.state.tasks {
		if t.WorkspaceID != workspaceID || (projectID != nil && t.ProjectID != *projectID) {
			continue
		}
		out.TotalTasks++
		if t.IsOverdue(now) {
			out.OverdueTasks++
		}
		if t.Status == models.TaskStatusDone {
			out.CompletedTasks++
		}
	}
	return out, nil
}

var (
	_ repositories.RoleRepository      = (*memRoleRepo)(nil)
	_ repositories.UserRepository      = (*memUserRepo)(nil)
	_ repositories.WorkspaceRepository = (*memWorkspaceRepo)(nil)
	_ repositories.MemberRepository    = (*memMemberRepo)(nil)
	_ repositories.ProjectRepository   = (*memProjectRepo)(nil)
	_ repositories.TaskRepository      = (*memTaskRepo)(nil)
)

// testEnv wires every service over one memStore.
type testEnv struct {
	store    *memStore
	tx       *memTransactor
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	roles      RoleService
	access     AccessService
	members    MemberService
	workspaces WorkspaceService
	accounts   AccountService
	projects   ProjectService
	tasks      TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	tx := &memTransactor{store: store}
	logger := zap.NewNop()
	auditor := audit.NewSecurityAuditor(logger)
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	roleRepo := &memRoleRepo{s: store}
	userRepo := &memUserRepo{s: store}
	workspaceRepo := &memWorkspaceRepo{s: store}
	memberRepo := &memMemberRepo{s: store}
	projectRepo := &memProjectRepo{s: store}
	taskRepo := &memTaskRepo{s: store}

	env := &testEnv{store: store, tx: tx, registry: registry, metrics: m}
	env.roles = NewRoleService(roleRepo, tx, logger)
	env.access = NewAccessService(workspaceRepo, memberRepo, m, auditor, logger)
	env.members = NewMemberService(env.access, memberRepo, roleRepo, userRepo, workspaceRepo, tx, m, auditor, logger)
	env.workspaces = NewWorkspaceService(env.access, env.members, workspaceRepo, memberRepo, userRepo, projectRepo, taskRepo, tx, auditor, logger)
	env.accounts = newAccountService(userRepo, env.workspaces, tx, auditor, logger, bcrypt.MinCost)
	env.projects = NewProjectService(env.access, projectRepo, taskRepo, tx, logger)
	env.tasks = NewTaskService(env.access, taskRepo, projectRepo, memberRepo, logger)
	return env
}

// newSeededEnv returns an env whose role catalog is already seeded.
func newSeededEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	if _, err := env.roles.SeedRoles(context.Background()); err != nil {
		t.Fatalf("SeedRoles failed: %v", err)
	}
	return env
}

func (e *testEnv) signup(t *testing.T, name, email string) *models.User {
	t.Helper()
	user, err := e.accounts.Signup(context.Background(), name, email, "Passw0rd!")
	if err != nil {
		t.Fatalf("Signup(%s) failed: %v", email, err)
	}
	return user
}

// join adds user to ws with the given role, bypassing authorization.
func (e *testEnv) join(t *testing.T, userID, workspaceID uuid.UUID, role models.RoleName) *models.Membership {
	t.Helper()
	m, err := e.members.AddMember(context.Background(), userID, workspaceID, role)
	if err != nil {
		t.Fatalf("AddMember(%s) failed: %v", role, err)
	}
	return m
}

func (e *testEnv) roleID(t *testing.T, name models.RoleName) uuid.UUID {
	t.Helper()
	for _, role := range e.store.state.roles {
		if role.Name == name {
			return role.ID
		}
	}
	t.Fatalf("role %s not seeded", name)
	return uuid.Nil
}

func (e *testEnv) user(t *testing.T, id uuid.UUID) models.User {
	t.Helper()
	user, ok := e.store.state.users[id]
	if !ok {
		t.Fatalf("user %s not found", id)
	}
	return user
}
