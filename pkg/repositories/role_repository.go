package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/database"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
)

// RoleRepository defines data access for seeded role records.
type RoleRepository interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, role *models.Role) error
	List(ctx context.Context) ([]*models.Role, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	GetByName(ctx context.Context, name models.RoleName) (*models.Role, error)
}

type roleRepository struct{}

// NewRoleRepository creates a new role repository.
func NewRoleRepository() RoleRepository {
	return &roleRepository{}
}

func (r *roleRepository) Count(ctx context.Context) (int, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return 0, errNoScope
	}

	var count int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count roles: %w", err)
	}
	return count, nil
}

func (r *roleRepository) Create(ctx context.Context, role *models.Role) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	role.CreatedAt = time.Now()

	perms := make([]string, len(role.Permissions))
	for i, p := range role.Permissions {
		perms[i] = string(p)
	}

	_, err := q.Exec(ctx,
		`INSERT INTO roles (id, name, permissions, created_at) VALUES ($1, $2, $3, $4)`,
		role.ID, string(role.Name), perms, role.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create role %s: %w", role.Name, err)
	}
	return nil
}

func (r *roleRepository) List(ctx context.Context) ([]*models.Role, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	rows, err := q.Query(ctx, `SELECT id, name, permissions, created_at FROM roles ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}
	return roles, nil
}

func (r *roleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	role, err := scanRole(q.QueryRow(ctx,
		`SELECT id, name, permissions, created_at FROM roles WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *roleRepository) GetByName(ctx context.Context, name models.RoleName) (*models.Role, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	role, err := scanRole(q.QueryRow(ctx,
		`SELECT id, name, permissions, created_at FROM roles WHERE name = $1`, string(name)))
	if err != nil {
		return nil, err
	}
	return role, nil
}

func scanRole(row pgx.Row) (*models.Role, error) {
	var role models.Role
	var name string
	var perms []string
	if err := row.Scan(&role.ID, &name, &perms, &role.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan role: %w", err)
	}

	roleName, err := models.ParseRoleName(name)
	if err != nil {
		return nil, fmt.Errorf("stored role %q: %w", name, err)
	}
	role.Name = roleName
	role.Permissions = make([]models.Permission, 0, len(perms))
	for _, p := range perms {
		perm, err := models.ParsePermission(p)
		if err != nil {
			return nil, fmt.Errorf("stored permission %q on role %s: %w", p, name, err)
		}
		role.Permissions = append(role.Permissions, perm)
	}
	return &role, nil
}

var _ RoleRepository = (*roleRepository)(nil)
