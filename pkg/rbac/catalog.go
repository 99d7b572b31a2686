package rbac

import (
	"sort"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
)

// PermissionSet is an immutable set of permissions.
type PermissionSet struct {
	perms map[models.Permission]struct{}
}

func newPermissionSet(perms ...models.Permission) PermissionSet {
	m := make(map[models.Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return PermissionSet{perms: m}
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p models.Permission) bool {
	_, ok := s.perms[p]
	return ok
}

// Missing returns the members of required that are not in the set.
func (s PermissionSet) Missing(required ...models.Permission) []models.Permission {
	var missing []models.Permission
	for _, p := range required {
		if !s.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Len returns the number of permissions in the set.
func (s PermissionSet) Len() int {
	return len(s.perms)
}

// List returns the permissions sorted by name.
func (s PermissionSet) List() []models.Permission {
	out := make([]models.Permission, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var catalog = map[models.RoleName]PermissionSet{
	models.RoleOwner: newPermissionSet(models.AllPermissions()...),
	models.RoleAdmin: newPermissionSet(
		models.PermAddMember,
		models.PermCreateProject,
		models.PermEditProject,
		models.PermDeleteProject,
		models.PermCreateTask,
		models.PermEditTask,
		models.PermDeleteTask,
		models.PermManageWorkspaceSettings,
		models.PermViewOnly,
	),
	models.RoleMember: newPermissionSet(
		models.PermViewOnly,
		models.PermCreateTask,
		models.PermEditTask,
	),
}

// PermissionsFor returns the permission set of role. Undeclared roles fail
// with apperrors.ErrInvalidRole rather than yielding an empty set.
func PermissionsFor(role models.RoleName) (PermissionSet, error) {
	set, ok := catalog[role]
	if !ok {
		return PermissionSet{}, apperrors.ErrInvalidRole
	}
	return set, nil
}
