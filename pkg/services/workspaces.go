package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/audit"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/database"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/logging"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/repositories"
)

var (
	errOwnerRoleMissing      = apperrors.NotFound("Owner role not found")
	errDeleteWorkspaceFailed = apperrors.Internal("Failed to delete workspace. Please try again later.")
	errCreateWorkspaceFailed = apperrors.Internal("Failed to create workspace. Please try again.")
	errInviteCodeUnavailable = &apperrors.Error{Kind: apperrors.ErrConflict, Message: "Could not allocate a new invite code. Please try again."}
)

// WorkspaceDetail is a workspace with its members.
type WorkspaceDetail struct {
	*models.Workspace
	Members []*models.Member `json:"members"`
}

// WorkspaceService orchestrates workspace lifecycle operations.
type WorkspaceService interface {
	// Create makes a workspace owned by userID with an OWNER membership and
	// points the user's current workspace at it, all in one transaction.
	Create(ctx context.Context, userID uuid.UUID, name string, description *string) (*models.Workspace, error)
	Update(ctx context.Context, callerID, workspaceID uuid.UUID, name string, description *string) (*models.Workspace, error)
	// Delete removes the workspace and everything it owns. The caller needs
	// DELETE_WORKSPACE and must be the owner. Returns the caller's current
	// workspace afterwards (nil when they have none left).
	Delete(ctx context.Context, callerID, workspaceID uuid.UUID) (*uuid.UUID, error)
	Get(ctx context.Context, callerID, workspaceID uuid.UUID) (*WorkspaceDetail, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error)
	Analytics(ctx context.Context, callerID, workspaceID uuid.UUID) (*models.WorkspaceAnalytics, error)
	ResetInviteCode(ctx context.Context, callerID, workspaceID uuid.UUID) (*models.Workspace, error)
	// SetCurrent points the user's active workspace at one they belong to.
	SetCurrent(ctx context.Context, userID, workspaceID uuid.UUID) error
}

type workspaceService struct {
	access        AccessService
	members       MemberService
	workspaceRepo repositories.WorkspaceRepository
	memberRepo    repositories.MemberRepository
	userRepo      repositories.UserRepository
	projectRepo   repositories.ProjectRepository
	taskRepo      repositories.TaskRepository
	tx            database.Transactor
	auditor       *audit.SecurityAuditor
	logger        *zap.Logger
	now           func() time.Time
}

// NewWorkspaceService creates a new workspace service.
func NewWorkspaceService(
	access AccessService,
	members MemberService,
	workspaceRepo repositories.WorkspaceRepository,
	memberRepo repositories.MemberRepository,
	userRepo repositories.UserRepository,
	projectRepo repositories.ProjectRepository,
	taskRepo repositories.TaskRepository,
	tx database.Transactor,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) WorkspaceService {
	return &workspaceService{
		access:        access,
		members:       members,
		workspaceRepo: workspaceRepo,
		memberRepo:    memberRepo,
		userRepo:      userRepo,
		projectRepo:   projectRepo,
		taskRepo:      taskRepo,
		tx:            tx,
		auditor:       auditor,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *workspaceService) Create(ctx context.Context, userID uuid.UUID, name string, description *string) (*models.Workspace, error) {
	var ws *models.Workspace
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		code, err := s.uniqueInviteCode(ctx)
		if err != nil {
			return err
		}

		ws = &models.Workspace{
			Name:        name,
			Description: description,
			OwnerID:     userID,
			InviteCode:  code,
		}
		if err := s.workspaceRepo.Create(ctx, ws); err != nil {
			return err
		}

		if _, err := s.members.AddMember(ctx, userID, ws.ID, models.RoleOwner); err != nil {
			if errors.Is(err, errRoleNotFound) {
				s.logger.Error("OWNER role is not seeded; role catalog initialisation did not run")
				return errOwnerRoleMissing
			}
			return err
		}

		return s.userRepo.SetCurrentWorkspace(ctx, userID, &ws.ID)
	})
	if err != nil {
		if errors.Is(err, errOwnerRoleMissing) {
			return nil, err
		}
		s.logger.Error("Failed to create workspace",
			zap.String("user_id", userID.String()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, errCreateWorkspaceFailed
	}
	return ws, nil
}

// uniqueInviteCode draws codes until one is unused. The unique index remains
// the final guard against a concurrent insert.
func (s *workspaceService) uniqueInviteCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return "", err
		}
		_, err = s.workspaceRepo.GetByInviteCode(ctx, code)
		if errors.Is(err, apperrors.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", repositories.ErrInviteCodeTaken
}

func (s *workspaceService) Update(ctx context.Context, callerID, workspaceID uuid.UUID, name string, description *string) (*models.Workspace, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermEditWorkspace); err != nil {
		return nil, err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errWorkspaceNotFound
		}
		return nil, err
	}

	ws.Name = name
	if description != nil {
		ws.Description = description
	}
	if err := s.workspaceRepo.Update(ctx, ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *workspaceService) Delete(ctx context.Context, callerID, workspaceID uuid.UUID) (*uuid.UUID, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermDeleteWorkspace); err != nil {
		return nil, err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errWorkspaceNotFound
		}
		return nil, err
	}
	if ws.OwnerID != callerID {
		return nil, apperrors.ErrNotWorkspaceOwner
	}

	var current *uuid.UUID
	removed := map[string]int64{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.projectRepo.DeleteByWorkspace(ctx, workspaceID)
		if err != nil {
			return err
		}
		removed["projects"] = n

		if n, err = s.taskRepo.DeleteByWorkspace(ctx, workspaceID); err != nil {
			return err
		}
		removed["tasks"] = n

		members, err := s.memberRepo.ListByWorkspace(ctx, workspaceID)
		if err != nil {
			return err
		}
		if n, err = s.members.RemoveAllMembers(ctx, workspaceID); err != nil {
			return err
		}
		removed["members"] = n

		// Members whose active workspace was this one move to another
		// membership before the row goes.
		for _, m := range members {
			next, err := repointCurrentWorkspace(ctx, s.userRepo, s.memberRepo, m.UserID, workspaceID)
			if err != nil {
				return err
			}
			if m.UserID == callerID {
				current = next
			}
		}

		return s.workspaceRepo.Delete(ctx, workspaceID)
	})
	if err != nil {
		s.logger.Error("Failed to delete workspace",
			zap.String("workspace_id", workspaceID.String()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, errDeleteWorkspaceFailed
	}

	s.auditor.LogWorkspaceDeleted(ctx, workspaceID, removed)
	return current, nil
}

func (s *workspaceService) Get(ctx context.Context, callerID, workspaceID uuid.UUID) (*WorkspaceDetail, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermViewOnly); err != nil {
		return nil, err
	}

	ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errWorkspaceNotFound
		}
		return nil, err
	}
	members, err := s.memberRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return &WorkspaceDetail{Workspace: ws, Members: members}, nil
}

func (s *workspaceService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error) {
	return s.workspaceRepo.ListForUser(ctx, userID)
}

func (s *workspaceService) Analytics(ctx context.Context, callerID, workspaceID uuid.UUID) (*models.WorkspaceAnalytics, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermViewOnly); err != nil {
		return nil, err
	}
	return s.taskRepo.Analytics(ctx, workspaceID, nil, s.now())
}

func (s *workspaceService) ResetInviteCode(ctx context.Context, callerID, workspaceID uuid.UUID) (*models.Workspace, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermManageWorkspaceSettings); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate invite code: %w", err)
		}

		err = s.workspaceRepo.UpdateInviteCode(ctx, workspaceID, code)
		if err == nil {
			return s.workspaceRepo.GetByID(ctx, workspaceID)
		}
		if !errors.Is(err, repositories.ErrInviteCodeTaken) {
			return nil, err
		}
		s.logger.Debug("Invite code collision, regenerating", zap.String("workspace_id", workspaceID.String()))
	}
	return nil, errInviteCodeUnavailable
}

func (s *workspaceService) SetCurrent(ctx context.Context, userID, workspaceID uuid.UUID) error {
	if _, err := s.access.ResolveRole(ctx, userID, workspaceID); err != nil {
		return err
	}
	return s.userRepo.SetCurrentWorkspace(ctx, userID, &workspaceID)
}

var _ WorkspaceService = (*workspaceService)(nil)
