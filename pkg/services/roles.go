package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/database"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/rbac"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/repositories"
)

// RoleService manages the persisted role catalog.
type RoleService interface {
	// SeedRoles inserts one row per role when the table is empty. It is
	// idempotent and reports whether it inserted anything.
	SeedRoles(ctx context.Context) (bool, error)
	List(ctx context.Context) ([]*models.Role, error)
}

type roleService struct {
	roleRepo repositories.RoleRepository
	tx       database.Transactor
	logger   *zap.Logger
}

// NewRoleService creates a new role service.
func NewRoleService(roleRepo repositories.RoleRepository, tx database.Transactor, logger *zap.Logger) RoleService {
	return &roleService{
		roleRepo: roleRepo,
		tx:       tx,
		logger:   logger,
	}
}

func (s *roleService) SeedRoles(ctx context.Context) (bool, error) {
	seeded := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		count, err := s.roleRepo.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		for _, name := range models.AllRoles() {
			set, err := rbac.PermissionsFor(name)
			if err != nil {
				return err
			}
			role := &models.Role{Name: name, Permissions: set.List()}
			if err := s.roleRepo.Create(ctx, role); err != nil {
				return fmt.Errorf("failed to seed role %s: %w", name, err)
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		// Another replica seeded concurrently; its rows are identical.
		if database.IsUniqueViolation(err, "roles_name_key") {
			s.logger.Info("Roles already seeded by another instance")
			return false, nil
		}
		return false, err
	}

	if seeded {
		s.logger.Info("Seeded role catalog", zap.Int("roles", len(models.AllRoles())))
	}
	return seeded, nil
}

func (s *roleService) List(ctx context.Context) ([]*models.Role, error) {
	return s.roleRepo.List(ctx)
}

var _ RoleService = (*roleService)(nil)
