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

// UserRepository defines the interface for account data access.
type UserRepository interface {
	// Create inserts a user. A duplicate email yields apperrors.ErrEmailTaken.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// SetCurrentWorkspace re-points the user's active workspace; nil clears it.
	SetCurrentWorkspace(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID) error
	RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time) error
}

type userRepository struct{}

// NewUserRepository creates a new user repository.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

const userColumns = `id, name, email, password_hash, profile_picture, is_active, last_login,
	current_workspace_id, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = normalizeEmail(user.Email)

	query := `
		INSERT INTO users (id, name, email, password_hash, profile_picture, is_active,
		                   last_login, current_workspace_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := q.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.ProfilePicture,
		user.IsActive,
		user.LastLogin,
		user.CurrentWorkspaceID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "users_email_key") {
			return apperrors.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}
	return scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return nil, errNoScope
	}
	return scanUser(q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, normalizeEmail(email)))
}

func (r *userRepository) SetCurrentWorkspace(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	result, err := q.Exec(ctx,
		`UPDATE users SET current_workspace_id = $1, updated_at = $2 WHERE id = $3`,
		workspaceID, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set current workspace: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *userRepository) RecordLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	q, ok := database.GetQuerier(ctx)
	if !ok {
		return errNoScope
	}

	result, err := q.Exec(ctx,
		`UPDATE users SET is_active = true, last_login = $1, updated_at = $1 WHERE id = $2`,
		at, userID)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.ProfilePicture,
		&u.IsActive,
		&u.LastLogin,
		&u.CurrentWorkspaceID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ UserRepository = (*userRepository)(nil)
