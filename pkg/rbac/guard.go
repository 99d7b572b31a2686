package rbac

import (
	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
)

// Authorize returns nil when every required permission belongs to role.
// An empty required list always passes. A missing permission yields
// apperrors.ErrInsufficientPermission.
func Authorize(role models.RoleName, required ...models.Permission) error {
	set, err := PermissionsFor(role)
	if err != nil {
		return err
	}
	if len(set.Missing(required...)) > 0 {
		return apperrors.ErrInsufficientPermission
	}
	return nil
}
