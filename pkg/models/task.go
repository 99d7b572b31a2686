package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/apperrors"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusBacklog    TaskStatus = "BACKLOG"
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusInReview   TaskStatus = "IN_REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
)

// ParseTaskStatus validates s. An empty string yields TaskStatusTodo.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case "":
		return TaskStatusTodo, nil
	case TaskStatusBacklog, TaskStatusTodo, TaskStatusInProgress, TaskStatusInReview, TaskStatusDone:
		return TaskStatus(s), nil
	}
	return "", apperrors.BadRequest("Invalid task status")
}

// TaskPriority orders tasks within a project.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// ParseTaskPriority validates s. An empty string yields TaskPriorityMedium.
func ParseTaskPriority(s string) (TaskPriority, error) {
	switch TaskPriority(s) {
	case "":
		return TaskPriorityMedium, nil
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return TaskPriority(s), nil
	}
	return "", apperrors.BadRequest("Invalid task priority")
}

// Task belongs to a project inside a workspace.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	TaskCode    string       `json:"task_code"`
	WorkspaceID uuid.UUID    `json:"workspace_id"`
	ProjectID   uuid.UUID    `json:"project_id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssignedTo  *uuid.UUID   `json:"assigned_to,omitempty"`
	CreatedBy   uuid.UUID    `json:"created_by"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsOverdue reports whether the task is past due and not done.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskStatusDone
}

// TaskFilter narrows a task listing. Zero values match everything.
type TaskFilter struct {
	ProjectID  *uuid.UUID
	Status     *TaskStatus
	AssignedTo *uuid.UUID
}
