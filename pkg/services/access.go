package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/audit"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/metrics"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/rbac"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/repositories"
)

var errWorkspaceNotFound = apperrors.NotFound("Workspace not found")

// AccessService resolves a caller's role in a workspace and checks it
// against the permission catalog.
type AccessService interface {
	// ResolveRole returns the caller's membership. A missing workspace is
	// NotFound; a missing membership is apperrors.ErrNotAMember.
	ResolveRole(ctx context.Context, userID, workspaceID uuid.UUID) (*models.Membership, error)
	// Authorize resolves the membership and requires every permission in
	// required. An empty list only requires membership.
	Authorize(ctx context.Context, userID, workspaceID uuid.UUID, required ...models.Permission) (*models.Membership, error)
}

type accessService struct {
	workspaceRepo repositories.WorkspaceRepository
	memberRepo    repositories.MemberRepository
	metrics       *metrics.Metrics
	auditor       *audit.SecurityAuditor
	logger        *zap.Logger
}

// NewAccessService creates a new access service. m may be nil.
func NewAccessService(
	workspaceRepo repositories.WorkspaceRepository,
	memberRepo repositories.MemberRepository,
	m *metrics.Metrics,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) AccessService {
	return &accessService{
		workspaceRepo: workspaceRepo,
		memberRepo:    memberRepo,
		metrics:       m,
		auditor:       auditor,
		logger:        logger,
	}
}

func (s *accessService) ResolveRole(ctx context.Context, userID, workspaceID uuid.UUID) (*models.Membership, error) {
	if _, err := s.workspaceRepo.GetByID(ctx, workspaceID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, errWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	membership, err := s.memberRepo.Get(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotAMember
		}
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	return membership, nil
}

func (s *accessService) Authorize(ctx context.Context, userID, workspaceID uuid.UUID, required ...models.Permission) (*models.Membership, error) {
	membership, err := s.ResolveRole(ctx, userID, workspaceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotAMember) {
			s.deny(ctx, workspaceID, userID, metrics.DecisionNotAMember, audit.AuthorizationDeniedDetails{
				Reason:   metrics.DecisionNotAMember,
				Required: permissionNames(required),
			})
		}
		return nil, err
	}

	if err := rbac.Authorize(membership.RoleName, required...); err != nil {
		if errors.Is(err, apperrors.ErrInsufficientPermission) {
			s.deny(ctx, workspaceID, userID, metrics.DecisionInsufficientPermission, audit.AuthorizationDeniedDetails{
				Reason:   metrics.DecisionInsufficientPermission,
				Role:     string(membership.RoleName),
				Required: permissionNames(required),
			})
		}
		return nil, err
	}

	s.metrics.RecordAuthorization(metrics.DecisionAllowed)
	return membership, nil
}

func (s *accessService) deny(ctx context.Context, workspaceID, userID uuid.UUID, decision string, details audit.AuthorizationDeniedDetails) {
	s.metrics.RecordAuthorization(decision)
	s.auditor.LogAuthorizationDenied(ctx, workspaceID, userID, details)
}

func permissionNames(perms []models.Permission) []string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return names
}

var _ AccessService = (*accessService)(nil)
