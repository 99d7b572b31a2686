package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/repositories"
)

var (
	errTaskNotFound        = apperrors.NotFound("Task not found")
	errAssigneeNotAMember  = apperrors.BadRequest("Assigned user is not a member of this workspace")
	errTaskProjectMismatch = apperrors.BadRequest("Task does not belong to this project")
)

// TaskInput carries the editable fields of a task. Status and Priority are
// already validated by models.ParseTaskStatus and models.ParseTaskPriority.
type TaskInput struct {
	Title       string
	Description *string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
}

// TaskService manages tasks within a workspace's projects.
type TaskService interface {
	Create(ctx context.Context, callerID, workspaceID, projectID uuid.UUID, input TaskInput) (*models.Task, error)
	Update(ctx context.Context, callerID, workspaceID, projectID, taskID uuid.UUID, input TaskInput) (*models.Task, error)
	List(ctx context.Context, callerID, workspaceID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error)
	Get(ctx context.Context, callerID, workspaceID, taskID uuid.UUID) (*models.Task, error)
	Delete(ctx context.Context, callerID, workspaceID, taskID uuid.UUID) error
}

type taskService struct {
	access      AccessService
	taskRepo    repositories.TaskRepository
	projectRepo repositories.ProjectRepository
	memberRepo  repositories.MemberRepository
	logger      *zap.Logger
}

// NewTaskService creates a new task service.
func NewTaskService(
	access AccessService,
	taskRepo repositories.TaskRepository,
	projectRepo repositories.ProjectRepository,
	memberRepo repositories.MemberRepository,
	logger *zap.Logger,
) TaskService {
	return &taskService{
		access:      access,
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		memberRepo:  memberRepo,
		logger:      logger,
	}
}

func (s *taskService) Create(ctx context.Context, callerID, workspaceID, projectID uuid.UUID, input TaskInput) (*models.Task, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermCreateTask); err != nil {
		return nil, err
	}
	if err := s.requireProject(ctx, workspaceID, projectID); err != nil {
		return nil, err
	}
	if err := s.requireAssignee(ctx, workspaceID, input.AssignedTo); err != nil {
		return nil, err
	}

	task := &models.Task{
		WorkspaceID: workspaceID,
		ProjectID:   projectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   callerID,
		DueDate:     input.DueDate,
	}
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = models.TaskPriorityMedium
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateTaskCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate task code: %w", err)
		}
		task.TaskCode = code

		err = s.taskRepo.Create(ctx, task)
		if err == nil {
			return task, nil
		}
		if !errors.Is(err, repositories.ErrTaskCodeTaken) {
			return nil, err
		}
		s.logger.Debug("Task code collision, regenerating", zap.String("task_code", code))
	}
	return nil, repositories.ErrTaskCodeTaken
}

func (s *taskService) Update(ctx context.Context, callerID, workspaceID, projectID, taskID uuid.UUID, input TaskInput) (*models.Task, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermEditTask); err != nil {
		return nil, err
	}

	task, err := s.load(ctx, workspaceID, taskID)
	if err != nil {
		return nil, err
	}
	if task.ProjectID != projectID {
		return nil, errTaskProjectMismatch
	}
	if err := s.requireAssignee(ctx, workspaceID, input.AssignedTo); err != nil {
		return nil, err
	}

	if input.Title != "" {
		task.Title = input.Title
	}
	if input.Description != nil {
		task.Description = input.Description
	}
	if input.Status != "" {
		task.Status = input.Status
	}
	if input.Priority != "" {
		task.Priority = input.Priority
	}
	if input.AssignedTo != nil {
		task.AssignedTo = input.AssignedTo
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, callerID, workspaceID uuid.UUID, filter models.TaskFilter) ([]*models.Task, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermViewOnly); err != nil {
		return nil, err
	}
	return s.taskRepo.List(ctx, workspaceID, filter)
}

func (s *taskService) Get(ctx context.Context, callerID, workspaceID, taskID uuid.UUID) (*models.Task, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermViewOnly); err != nil {
		return nil, err
	}
	return s.load(ctx, workspaceID, taskID)
}

func (s *taskService) Delete(ctx context.Context, callerID, workspaceID, taskID uuid.UUID) error {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermDeleteTask); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, workspaceID, taskID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return errTaskNotFound
		}
		return err
	}
	return nil
}

func (s *taskService) load(ctx context.Context, workspaceID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, workspaceID, taskID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *taskService) requireProject(ctx context.Context, workspaceID, projectID uuid.UUID) error {
	if _, err := s.projectRepo.GetByID(ctx, workspaceID, projectID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return errProjectNotFound
		}
		return err
	}
	return nil
}

// requireAssignee checks that a non-nil assignee belongs to the workspace.
func (s *taskService) requireAssignee(ctx context.Context, workspaceID uuid.UUID, assignee *uuid.UUID) error {
	if assignee == nil {
		return nil
	}
	if _, err := s.memberRepo.Get(ctx, workspaceID, *assignee); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return errAssigneeNotAMember
		}
		return err
	}
	return nil
}

var _ TaskService = (*taskService)(nil)
