package models

import (
	"testing"
	"time"
)

func TestParseTaskStatus_Defaults(t *testing.T) {
	s, err := ParseTaskStatus("")
	if err != nil || s != TaskStatusTodo {
		t.Fatalf("expected TODO default, got %q (%v)", s, err)
	}
	if _, err := ParseTaskStatus("ARCHIVED"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestParseTaskPriority_Defaults(t *testing.T) {
	p, err := ParseTaskPriority("")
	if err != nil || p != TaskPriorityMedium {
		t.Fatalf("expected MEDIUM default, got %q (%v)", p, err)
	}
	if _, err := ParseTaskPriority("URGENT"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name   string
		due    *time.Time
		status TaskStatus
		want   bool
	}{
		{"no due date", nil, TaskStatusTodo, false},
		{"past due open", &past, TaskStatusInProgress, true},
		{"past due done", &past, TaskStatusDone, false},
		{"future due", &future, TaskStatusTodo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{DueDate: tt.due, Status: tt.status}
			if got := task.IsOverdue(now); got != tt.want {
				t.Errorf("IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}
