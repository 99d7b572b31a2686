package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. CurrentWorkspaceID is nil only when the user has no
// membership left.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"`
	ProfilePicture     *string    `json:"profile_picture,omitempty"`
	IsActive           bool       `json:"is_active"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
	CurrentWorkspaceID *uuid.UUID `json:"current_workspace_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
