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

// MemberRepository defines data access for workspace memberships.
type MemberRepository interface {
	// Create inserts a membership. A duplicate (workspace, user) pair yields
	// apperrors.ErrAlreadyMember.
	Create(ctx context.Context, m *models.Membership) error
	Get(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Membership, error)
	// GetForUpdate is Get with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Membership, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Member, error)
	CountByRole(ctx context.Context, workspaceID uuid.UUID, role models.RoleName) (int, error)
	// UpdateRole sets the role and bumps the version. The write only applies
	// when the stored version equals expectedVersion; otherwise
	// apperrors.ErrStaleMembership is returned.
	UpdateRole(ctx context.Context, workspaceID, userID, roleID uuid.UUID, expectedVersion int64) (*models.Membership, error)
	Delete(ctx context.Context, workspaceID, userID uuid.UUID) error
	DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error)
	// FindOtherWorkspace returns a workspace other than excludeID the user
	// belongs to, or nil when there is none.
	FindOtherWorkspace(ctx context.Context, userID, excludeID uuid.UUID) (*uuid.UUID, error)
}

type memberRepository struct{}

// NewMemberRepository creates a new membership repository.
func NewMemberRepository() MemberRepository {
	return &memberRepository{}
}

const membershipSelect = `
	SELECT m.id, m.workspace_id, m.user_id, m.role_id, r.name, m.version, m.joined_at
	FROM workspace_members m
	JOIN roles r ON r.id = m.role_id`

func (r *memberRepository) Create(ctx context.Context, m *models.Membership) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	m.Version = 1

	query := `
		INSERT INTO workspace_members (id, workspace_id, user_id, role_id, version, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := q.Exec(ctx, query, m.ID, m.WorkspaceID, m.UserID, m.RoleID, m.Version, m.JoinedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "workspace_members_workspace_user_key") {
			return apperrors.ErrAlreadyMember
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

func (r *memberRepository) Get(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Membership, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}
	return scanMembership(q.QueryRow(ctx,
		membershipSelect+` WHERE m.workspace_id = $1 AND m.user_id = $2`, workspaceID, userID))
}

func (r *memberRepository) GetForUpdate(ctx context.Context, workspaceID, userID uuid.UUID) (*models.Membership, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}
	return scanMembership(q.QueryRow(ctx,
		membershipSelect+` WHERE m.workspace_id = $1 AND m.user_id = $2 FOR UPDATE OF m`, workspaceID, userID))
}

func (r *memberRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Member, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	query := `
		SELECT m.id, m.workspace_id, m.user_id, m.role_id, r.name, m.version, m.joined_at,
		       u.name, u.email, u.profile_picture
		FROM workspace_members m
		JOIN roles r ON r.id = m.role_id
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.joined_at`

	rows, err := q.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		var mem models.Member
		var roleName string
		err := rows.Scan(
			&mem.ID,
			&mem.WorkspaceID,
			&mem.UserID,
			&mem.RoleID,
			&roleName,
			&mem.Version,
			&mem.JoinedAt,
			&mem.Name,
			&mem.Email,
			&mem.ProfilePicture,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		mem.RoleName = models.RoleName(roleName)
		members = append(members, &mem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func (r *memberRepository) CountByRole(ctx context.Context, workspaceID uuid.UUID, role models.RoleName) (int, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return 0, errNoScope
	}

	query := `
		SELECT COUNT(*)
		FROM workspace_members m
		JOIN roles r ON r.id = m.role_id
		WHERE m.workspace_id = $1 AND r.name = $2`

	var count int
	if err := q.QueryRow(ctx, query, workspaceID, string(role)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s members: %w", role, err)
	}
	return count, nil
}

func (r *memberRepository) UpdateRole(ctx context.Context, workspaceID, userID, roleID uuid.UUID, expectedVersion int64) (*models.Membership, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	query := `
		UPDATE workspace_members
		SET role_id = $1, version = version + 1
		WHERE workspace_id = $2 AND user_id = $3 AND version = $4`

	result, err := q.Exec(ctx, query, roleID, workspaceID, userID, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, apperrors.ErrStaleMembership
	}

	return r.Get(ctx, workspaceID, userID)
}

func (r *memberRepository) Delete(ctx context.Context, workspaceID, userID uuid.UUID) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	result, err := q.Exec(ctx,
		`DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *memberRepository) DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return 0, errNoScope
	}

	result, err := q.Exec(ctx, `DELETE FROM workspace_members WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete workspace members: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *memberRepository) FindOtherWorkspace(ctx context.Context, userID, excludeID uuid.UUID) (*uuid.UUID, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	query := `
		SELECT workspace_id
		FROM workspace_members
		WHERE user_id = $1 AND workspace_id <> $2
		ORDER BY joined_at
		LIMIT 1`

	var id uuid.UUID
	err := q.QueryRow(ctx, query, userID, excludeID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find other workspace: %w", err)
	}
	return &id, nil
}

func scanMembership(row pgx.Row) (*models.Membership, error) {
	var m models.Membership
	var roleName string
	err := row.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.RoleID, &roleName, &m.Version, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan membership: %w", err)
	}
	m.RoleName = models.RoleName(roleName)
	return &m, nil
}

var _ MemberRepository = (*memberRepository)(nil)
