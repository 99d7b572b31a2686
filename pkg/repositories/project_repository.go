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

// ProjectRepository defines data access for projects. Every lookup is scoped
// to a workspace so a project id from another workspace reads as not found.
type ProjectRepository interface {
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Project, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error)
}

type projectRepository struct{}

// NewProjectRepository creates a new project repository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

const projectColumns = `id, workspace_id, name, description, emoji, created_by, created_at, updated_at`

func (r *projectRepository) Create(ctx context.Context, p *models.Project) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Emoji == "" {
		p.Emoji = models.DefaultProjectEmoji
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := q.Exec(ctx, query,
		p.ID, p.WorkspaceID, p.Name, p.Description, p.Emoji, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *projectRepository) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Project, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	query := `SELECT ` + projectColumns + ` FROM projects WHERE workspace_id = $1 AND id = $2`
	return scanProject(q.QueryRow(ctx, query, workspaceID, id))
}

func (r *projectRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	query := `SELECT ` + projectColumns + ` FROM projects WHERE workspace_id = $1 ORDER BY created_at DESC`
	rows, err := q.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func (r *projectRepository) Update(ctx context.Context, p *models.Project) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	p.UpdatedAt = time.Now()
	query := `
		UPDATE projects
		SET name = $1, description = $2, emoji = $3, updated_at = $4
		WHERE workspace_id = $5 AND id = $6`

	result, err := q.Exec(ctx, query, p.Name, p.Description, p.Emoji, p.UpdatedAt, p.WorkspaceID, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	result, err := q.Exec(ctx, `DELETE FROM projects WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *projectRepository) DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return 0, errNoScope
	}

	result, err := q.Exec(ctx, `DELETE FROM projects WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete workspace projects: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.Emoji, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &p, nil
}

var _ ProjectRepository = (*projectRepository)(nil)
