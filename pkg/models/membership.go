package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership grants a user a role within a workspace. At most one exists per
// (WorkspaceID, UserID). Version increments on every role change.
type Membership struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	RoleID      uuid.UUID `json:"role_id"`
	RoleName    RoleName  `json:"role"`
	Version     int64     `json:"version"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Member is a membership joined with the member's public profile.
type Member struct {
	Membership
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
}
