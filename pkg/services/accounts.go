package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/audit"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/database"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/logging"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/repositories"
)

var errSignupFailed = apperrors.Internal("Failed to register user. Please try again.")

// AccountService handles registration, sign-in and profile lookup.
type AccountService interface {
	// Signup creates the user, a default workspace they own and the OWNER
	// membership, then points the user's current workspace at it. All or
	// nothing.
	Signup(ctx context.Context, name, email, password string) (*models.User, error)
	// Signin checks credentials and records the login.
	Signin(ctx context.Context, email, password string) (*models.User, error)
	GetCurrent(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type accountService struct {
	userRepo   repositories.UserRepository
	workspaces WorkspaceService
	tx         database.Transactor
	auditor    *audit.SecurityAuditor
	logger     *zap.Logger
	hashCost   int
	now        func() time.Time
}

// NewAccountService creates a new account service using bcrypt.DefaultCost.
func NewAccountService(
	userRepo repositories.UserRepository,
	workspaces WorkspaceService,
	tx database.Transactor,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) AccountService {
	return newAccountService(userRepo, workspaces, tx, auditor, logger, bcrypt.DefaultCost)
}

func newAccountService(
	userRepo repositories.UserRepository,
	workspaces WorkspaceService,
	tx database.Transactor,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
	hashCost int,
) *accountService {
	return &accountService{
		userRepo:   userRepo,
		workspaces: workspaces,
		tx:         tx,
		auditor:    auditor,
		logger:     logger,
		hashCost:   hashCost,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *accountService) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailTaken
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Error("Failed to check email during signup", zap.String("error", logging.SanitizeError(err)))
		return nil, errSignupFailed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, errSignupFailed
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}

		desc := models.DefaultWorkspaceDescription(name)
		ws, err := s.workspaces.Create(ctx, user.ID, models.DefaultWorkspaceName, &desc)
		if err != nil {
			return err
		}
		user.CurrentWorkspaceID = &ws.ID
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEmailTaken):
			return nil, apperrors.ErrEmailTaken
		case errors.Is(err, errOwnerRoleMissing):
			return nil, errOwnerRoleMissing
		}
		s.logger.Error("Failed to register user",
			zap.String("email", logging.MaskEmail(email)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, errSignupFailed
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("workspace_id", user.CurrentWorkspaceID.String()))
	return user, nil
}

func (s *accountService) Signin(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.auditor.LogSigninFailure(ctx, email, "unknown_email")
			return nil, apperrors.ErrInvalidCredential
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.auditor.LogSigninFailure(ctx, email, "wrong_password")
		return nil, apperrors.ErrInvalidCredential
	}

	now := s.now()
	if err := s.userRepo.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.IsActive = true
	user.LastLogin = &now
	return user, nil
}

func (s *accountService) GetCurrent(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, err
	}
	return user, nil
}

var _ AccountService = (*accountService)(nil)
