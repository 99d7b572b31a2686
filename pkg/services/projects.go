package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/database"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/logging"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/repositories"
)

var (
	errProjectNotFound     = apperrors.NotFound("Project not found")
	errDeleteProjectFailed = apperrors.Internal("Failed to delete project")
)

// ProjectInput carries the editable fields of a project.
type ProjectInput struct {
	Name        string
	Description *string
	Emoji       string
}

// ProjectService manages projects within a workspace.
type ProjectService interface {
	Create(ctx context.Context, callerID, workspaceID uuid.UUID, input ProjectInput) (*models.Project, error)
	List(ctx context.Context, callerID, workspaceID uuid.UUID) ([]*models.Project, error)
	Get(ctx context.Context, callerID, workspaceID, projectID uuid.UUID) (*models.Project, error)
	Analytics(ctx context.Context, callerID, workspaceID, projectID uuid.UUID) (*models.WorkspaceAnalytics, error)
	Update(ctx context.Context, callerID, workspaceID, projectID uuid.UUID, input ProjectInput) (*models.Project, error)
	// Delete removes the project and its tasks in one transaction.
	Delete(ctx context.Context, callerID, workspaceID, projectID uuid.UUID) error
}

type projectService struct {
	access      AccessService
	projectRepo repositories.ProjectRepository
	taskRepo    repositories.TaskRepository
	tx          database.Transactor
	logger      *zap.Logger
	now         func() time.Time
}

// NewProjectService creates a new project service.
func NewProjectService(
	access AccessService,
	projectRepo repositories.ProjectRepository,
	taskRepo repositories.TaskRepository,
	tx database.Transactor,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		access:      access,
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		tx:          tx,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *projectService) Create(ctx context.Context, callerID, workspaceID uuid.UUID, input ProjectInput) (*models.Project, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermCreateProject); err != nil {
		return nil, err
	}

	project := &models.Project{
		WorkspaceID: workspaceID,
		Name:        input.Name,
		Description: input.Description,
		Emoji:       input.Emoji,
		CreatedBy:   &callerID,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) List(ctx context.Context, callerID, workspaceID uuid.UUID) ([]*models.Project, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermViewOnly); err != nil {
		return nil, err
	}
	return s.projectRepo.ListByWorkspace(ctx, workspaceID)
}

func (s *projectService) Get(ctx context.Context, callerID, workspaceID, projectID uuid.UUID) (*models.Project, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermViewOnly); err != nil {
		return nil, err
	}
	return s.load(ctx, workspaceID, projectID)
}

func (s *projectService) Analytics(ctx context.Context, callerID, workspaceID, projectID uuid.UUID) (*models.WorkspaceAnalytics, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermViewOnly); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, workspaceID, projectID); err != nil {
		return nil, err
	}
	return s.taskRepo.Analytics(ctx, workspaceID, &projectID, s.now())
}

func (s *projectService) Update(ctx context.Context, callerID, workspaceID, projectID uuid.UUID, input ProjectInput) (*models.Project, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermEditProject); err != nil {
		return nil, err
	}

	project, err := s.load(ctx, workspaceID, projectID)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		project.Name = input.Name
	}
	if input.Description != nil {
		project.Description = input.Description
	}
	if input.Emoji != "" {
		project.Emoji = input.Emoji
	}
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) Delete(ctx context.Context, callerID, workspaceID, projectID uuid.UUID) error {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermDeleteProject); err != nil {
		return err
	}
	if _, err := s.load(ctx, workspaceID, projectID); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.taskRepo.DeleteByProject(ctx, workspaceID, projectID); err != nil {
			return err
		}
		return s.projectRepo.Delete(ctx, workspaceID, projectID)
	})
	if err != nil {
		s.logger.Error("Failed to delete project",
			zap.String("project_id", projectID.String()),
			zap.String("error", logging.SanitizeError(err)))
		return errDeleteProjectFailed
	}
	return nil
}

// load fetches a project scoped to its workspace.
func (s *projectService) load(ctx context.Context, workspaceID, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, workspaceID, projectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

var _ ProjectService = (*projectService)(nil)
