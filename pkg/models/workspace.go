package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default values for the workspace created at signup.
const (
	DefaultWorkspaceName       = "My Workspace"
	defaultWorkspaceDescFormat = "Workspace created for %s"
)

// DefaultWorkspaceDescription returns the description of a signup workspace.
func DefaultWorkspaceDescription(userName string) string {
	return fmt.Sprintf(defaultWorkspaceDescFormat, userName)
}

// Workspace is a tenant container. OwnerID is fixed at creation.
type Workspace struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	OwnerID     uuid.UUID `json:"owner_id"`
	InviteCode  string    `json:"invite_code"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkspaceAnalytics summarizes task state in a workspace or project.
type WorkspaceAnalytics struct {
	TotalTasks     int `json:"total_tasks"`
	OverdueTasks   int `json:"overdue_tasks"`
	CompletedTasks int `json:"completed_tasks"`
}
