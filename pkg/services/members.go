package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/audit"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/database"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/metrics"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/repositories"
)

var (
	errRoleNotFound    = apperrors.NotFound("Role not found")
	errInvalidInvite   = apperrors.NotFound("Invalid invite code or workspace not found")
	errFailedMemberOps = apperrors.Internal("Failed to update workspace members. Please try again.")
)

// MemberList is a workspace's members plus the role catalog they draw from.
type MemberList struct {
	Members []*models.Member `json:"members"`
	Roles   []*models.Role   `json:"roles"`
}

// MemberService manages workspace memberships.
type MemberService interface {
	// AddMember grants role to the user in the workspace. A second
	// membership for the same pair fails with apperrors.ErrAlreadyMember.
	AddMember(ctx context.Context, userID, workspaceID uuid.UUID, role models.RoleName) (*models.Membership, error)
	// ChangeRole requires CHANGE_MEMBER_ROLE. expectedVersion, when set, must
	// match the stored membership version.
	ChangeRole(ctx context.Context, callerID, workspaceID, memberUserID, roleID uuid.UUID, expectedVersion *int64) (*models.Membership, error)
	// RemoveMember requires REMOVE_MEMBER. The workspace owner cannot be removed.
	RemoveMember(ctx context.Context, callerID, workspaceID, memberUserID uuid.UUID) error
	// RemoveAllMembers deletes every membership of the workspace. Callers run
	// it inside the workspace deletion transaction.
	RemoveAllMembers(ctx context.Context, workspaceID uuid.UUID) (int64, error)
	JoinByInvite(ctx context.Context, userID uuid.UUID, inviteCode string) (*models.Membership, error)
	ListMembers(ctx context.Context, callerID, workspaceID uuid.UUID) (*MemberList, error)
}

type memberService struct {
	access        AccessService
	memberRepo    repositories.MemberRepository
	roleRepo      repositories.RoleRepository
	userRepo      repositories.UserRepository
	workspaceRepo repositories.WorkspaceRepository
	tx            database.Transactor
	metrics       *metrics.Metrics
	auditor       *audit.SecurityAuditor
	logger        *zap.Logger
}

// NewMemberService creates a new membership service.
func NewMemberService(
	access AccessService,
	memberRepo repositories.MemberRepository,
	roleRepo repositories.RoleRepository,
	userRepo repositories.UserRepository,
	workspaceRepo repositories.WorkspaceRepository,
	tx database.Transactor,
	m *metrics.Metrics,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) MemberService {
	return &memberService{
		access:        access,
		memberRepo:    memberRepo,
		roleRepo:      roleRepo,
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
		tx:            tx,
		metrics:       m,
		auditor:       auditor,
		logger:        logger,
	}
}

func (s *memberService) AddMember(ctx context.Context, userID, workspaceID uuid.UUID, roleName models.RoleName) (*models.Membership, error) {
	if !roleName.Valid() {
		return nil, apperrors.ErrInvalidRole
	}

	role, err := s.roleRepo.GetByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errRoleNotFound
		}
		return nil, err
	}

	if _, err := s.memberRepo.Get(ctx, workspaceID, userID); err == nil {
		return nil, apperrors.ErrAlreadyMember
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	membership := &models.Membership{
		WorkspaceID: workspaceID,
		UserID:      userID,
		RoleID:      role.ID,
		RoleName:    role.Name,
	}
	if err := s.memberRepo.Create(ctx, membership); err != nil {
		return nil, err
	}

	s.metrics.RecordMembershipChange("add")
	return membership, nil
}

func (s *memberService) ChangeRole(
	ctx context.Context,
	callerID, workspaceID, memberUserID, roleID uuid.UUID,
	expectedVersion *int64,
) (*models.Membership, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermChangeMemberRole); err != nil {
		return nil, err
	}

	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errRoleNotFound
		}
		return nil, err
	}

	var previous models.RoleName
	var updated *models.Membership
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.memberRepo.GetForUpdate(ctx, workspaceID, memberUserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.ErrMemberNotFound
			}
			return err
		}
		if expectedVersion != nil && *expectedVersion != current.Version {
			return apperrors.ErrStaleMembership
		}
		previous = current.RoleName

		if current.RoleName == models.RoleOwner && role.Name != models.RoleOwner {
			ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
			if err != nil {
				return err
			}
			if ws.OwnerID == memberUserID {
				return apperrors.ErrOwnerRoleLocked
			}
			owners, err := s.memberRepo.CountByRole(ctx, workspaceID, models.RoleOwner)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return apperrors.ErrLastOwner
			}
		}

		updated, err = s.memberRepo.UpdateRole(ctx, workspaceID, memberUserID, role.ID, current.Version)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMembershipChange("change_role")
	s.auditor.LogRoleChanged(ctx, workspaceID, audit.RoleChangedDetails{
		MemberUserID: memberUserID.String(),
		FromRole:     string(previous),
		ToRole:       string(updated.RoleName),
	})
	return updated, nil
}

func (s *memberService) RemoveMember(ctx context.Context, callerID, workspaceID, memberUserID uuid.UUID) error {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermRemoveMember); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ws, err := s.workspaceRepo.GetByID(ctx, workspaceID)
		if err != nil {
			return err
		}
		if ws.OwnerID == memberUserID {
			return apperrors.ErrCannotRemoveOwner
		}

		target, err := s.memberRepo.GetForUpdate(ctx, workspaceID, memberUserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.ErrMemberNotFound
			}
			return err
		}
		if target.RoleName == models.RoleOwner {
			owners, err := s.memberRepo.CountByRole(ctx, workspaceID, models.RoleOwner)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return apperrors.ErrLastOwner
			}
		}

		if err := s.memberRepo.Delete(ctx, workspaceID, memberUserID); err != nil {
			return err
		}
		_, err = repointCurrentWorkspace(ctx, s.userRepo, s.memberRepo, memberUserID, workspaceID)
		return err
	})
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			return err
		}
		s.logger.Error("Failed to remove member",
			zap.String("workspace_id", workspaceID.String()),
			zap.String("member_user_id", memberUserID.String()),
			zap.Error(err))
		return errFailedMemberOps
	}

	s.metrics.RecordMembershipChange("remove")
	return nil
}

func (s *memberService) RemoveAllMembers(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	removed, err := s.memberRepo.DeleteByWorkspace(ctx, workspaceID)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordMembershipChange("remove_all")
	return removed, nil
}

func (s *memberService) JoinByInvite(ctx context.Context, userID uuid.UUID, inviteCode string) (*models.Membership, error) {
	ws, err := s.workspaceRepo.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errInvalidInvite
		}
		return nil, err
	}

	var membership *models.Membership
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		membership, err = s.AddMember(ctx, userID, ws.ID, models.RoleMember)
		if err != nil {
			return err
		}

		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user.CurrentWorkspaceID == nil {
			return s.userRepo.SetCurrentWorkspace(ctx, userID, &ws.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMembershipChange("join")
	return membership, nil
}

func (s *memberService) ListMembers(ctx context.Context, callerID, workspaceID uuid.UUID) (*MemberList, error) {
	if _, err := s.access.Authorize(ctx, callerID, workspaceID, models.PermViewOnly); err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return &MemberList{Members: members, Roles: roles}, nil
}

// repointCurrentWorkspace moves the user's active workspace off leaving when
// it points there: to another workspace they belong to, or to nil. It
// returns the resulting pointer.
func repointCurrentWorkspace(
	ctx context.Context,
	userRepo repositories.UserRepository,
	memberRepo repositories.MemberRepository,
	userID, leaving uuid.UUID,
) (*uuid.UUID, error) {
	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.CurrentWorkspaceID == nil || *user.CurrentWorkspaceID != leaving {
		return user.CurrentWorkspaceID, nil
	}

	next, err := memberRepo.FindOtherWorkspace(ctx, userID, leaving)
	if err != nil {
		return nil, err
	}
	if err := userRepo.SetCurrentWorkspace(ctx, userID, next); err != nil {
		return nil, fmt.Errorf("failed to re-point current workspace: %w", err)
	}
	return next, nil
}

var _ MemberService = (*memberService)(nil)
