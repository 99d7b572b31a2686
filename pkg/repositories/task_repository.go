package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/database"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
)

// ErrTaskCodeTaken is returned when a generated task code collides with an
// existing one. Callers regenerate and retry.
var ErrTaskCodeTaken = errors.New("task code already in use")

// TaskRepository defines data access for tasks. Every lookup is scoped to a
// workspace.
type TaskRepository interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, workspaceID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, t *models.Task) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	DeleteByProject(ctx context.Context, workspaceID, projectID uuid.UUID) (int64, error)
	DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error)
	// Analytics counts tasks in the workspace, optionally narrowed to one
	// project. Overdue means due before now and not DONE.
	Analytics(ctx context.Context, workspaceID uuid.UUID, projectID *uuid.UUID, now time.Time) (*models.WorkspaceAnalytics, error)
}

type taskRepository struct{}

// NewTaskRepository creates a new task repository.
func NewTaskRepository() TaskRepository {
	return &taskRepository{}
}

const taskColumns = `id, task_code, workspace_id, project_id, title, description, status, priority,
	assigned_to, created_by, due_date, created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, t *models.Task) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := q.Exec(ctx, query,
		t.ID, t.TaskCode, t.WorkspaceID, t.ProjectID, t.Title, t.Description,
		string(t.Status), string(t.Priority), t.AssignedTo, t.CreatedBy, t.DueDate,
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "tasks_task_code_key") {
			return ErrTaskCodeTaken
		}
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (*models.Task, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE workspace_id = $1 AND id = $2`
	return scanTask(q.QueryRow(ctx, query, workspaceID, id))
}

func (r *taskRepository) List(ctx context.Context, workspaceID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	conditions := []string{"workspace_id = $1"}
	args := []any{workspaceID}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY created_at DESC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, t *models.Task) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	t.UpdatedAt = time.Now()
	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4,
		    assigned_to = $5, due_date = $6, updated_at = $7
		WHERE workspace_id = $8 AND id = $9`

	result, err := q.Exec(ctx, query,
		t.Title, t.Description, string(t.Status), string(t.Priority),
		t.AssignedTo, t.DueDate, t.UpdatedAt, t.WorkspaceID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	result, err := q.Exec(ctx, `DELETE FROM tasks WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *taskRepository) DeleteByProject(ctx context.Context, workspaceID, projectID uuid.UUID) (int64, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return 0, errNoScope
	}

	result, err := q.Exec(ctx,
		`DELETE FROM tasks WHERE workspace_id = $1 AND project_id = $2`, workspaceID, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete project tasks: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *taskRepository) DeleteByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return 0, errNoScope
	}

	result, err := q.Exec(ctx, `DELETE FROM tasks WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete workspace tasks: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *taskRepository) Analytics(ctx context.Context, workspaceID uuid.UUID, projectID *uuid.UUID, now time.Time) (*models.WorkspaceAnalytics, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE due_date < $2 AND status <> 'DONE'),
			COUNT(*) FILTER (WHERE status = 'DONE')
		FROM tasks
		WHERE workspace_id = $1 AND ($3::uuid IS NULL OR project_id = $3)`

	var a models.WorkspaceAnalytics
	err := q.QueryRow(ctx, query, workspaceID, now, projectID).Scan(&a.TotalTasks, &a.OverdueTasks, &a.CompletedTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to compute task analytics: %w", err)
	}
	return &a, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	var status, priority string
	err := row.Scan(
		&t.ID,
		&t.TaskCode,
		&t.WorkspaceID,
		&t.ProjectID,
		&t.Title,
		&t.Description,
		&status,
		&priority,
		&t.AssignedTo,
		&t.CreatedBy,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	t.Status = models.TaskStatus(status)
	t.Priority = models.TaskPriority(priority)
	return &t, nil
}

var _ TaskRepository = (*taskRepository)(nil)
