// Package models contains domain types for ekaya-teamwork.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultProjectEmoji is used when a project is created without one.
const DefaultProjectEmoji = "📊"

// Project belongs to exactly one workspace and records its creator.
type Project struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Emoji       string     `json:"emoji"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
