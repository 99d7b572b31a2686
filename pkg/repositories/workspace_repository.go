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

// ErrInviteCodeTaken is returned when a generated invite code collides with
// an existing one. Callers regenerate and retry.
var ErrInviteCodeTaken = errors.New("invite code already in use")

// WorkspaceRepository defines data access for workspaces.
type WorkspaceRepository interface {
	Create(ctx context.Context, ws *models.Workspace) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Workspace, error)
	// ListForUser returns every workspace the user is a member of.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error)
	Update(ctx context.Context, ws *models.Workspace) error
	UpdateInviteCode(ctx context.Context, id uuid.UUID, code string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type workspaceRepository struct{}

// NewWorkspaceRepository creates a new workspace repository.
func NewWorkspaceRepository() WorkspaceRepository {
	return &workspaceRepository{}
}

const workspaceColumns = `w.id, w.name, w.description, w.owner_id, w.invite_code, w.created_at, w.updated_at`

func (r *workspaceRepository) Create(ctx context.Context, ws *models.Workspace) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	now := time.Now()
	ws.CreatedAt = now
	ws.UpdatedAt = now

	query := `
		INSERT INTO workspaces (id, name, description, owner_id, invite_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := q.Exec(ctx, query,
		ws.ID, ws.Name, ws.Description, ws.OwnerID, ws.InviteCode, ws.CreatedAt, ws.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "workspaces_invite_code_key") {
			return ErrInviteCodeTaken
		}
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

func (r *workspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}
	return scanWorkspace(q.QueryRow(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces w WHERE w.id = $1`, id))
}

func (r *workspaceRepository) GetByInviteCode(ctx context.Context, code string) (*models.Workspace, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}
	return scanWorkspace(q.QueryRow(ctx,
		`SELECT `+workspaceColumns+` FROM workspaces w WHERE w.invite_code = $1`, code))
}

func (r *workspaceRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	query := `
		SELECT ` + workspaceColumns + `
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = $1
		ORDER BY m.joined_at`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*models.Workspace
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspaces: %w", err)
	}
	return workspaces, nil
}

func (r *workspaceRepository) Update(ctx context.Context, ws *models.Workspace) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	ws.UpdatedAt = time.Now()
	result, err := q.Exec(ctx,
		`UPDATE workspaces SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		ws.Name, ws.Description, ws.UpdatedAt, ws.ID)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *workspaceRepository) UpdateInviteCode(ctx context.Context, id uuid.UUID, code string) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	result, err := q.Exec(ctx,
		`UPDATE workspaces SET invite_code = $1, updated_at = $2 WHERE id = $3`,
		code, time.Now(), id)
	if err != nil {
		if database.IsUniqueViolation(err, "workspaces_invite_code_key") {
			return ErrInviteCodeTaken
		}
		return fmt.Errorf("failed to update invite code: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *workspaceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	result, err := q.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanWorkspace(row pgx.Row) (*models.Workspace, error) {
	var ws models.Workspace
	err := row.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.OwnerID, &ws.InviteCode, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	return &ws, nil
}

var _ WorkspaceRepository = (*workspaceRepository)(nil)
