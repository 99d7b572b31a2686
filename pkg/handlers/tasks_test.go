package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
)

func TestTaskRequest_ToInput(t *testing.T) {
	assignee := uuid.New()
	assigneeStr := assignee.String()
	badAssignee := "bob"

	t.Run("create applies defaults", func(t *testing.T) {
		req := TaskRequest{Title: "Write docs"}
		input, fe := req.toInput(true)
		require.Nil(t, fe)
		assert.Equal(t, models.TaskStatusTodo, input.Status)
		assert.Equal(t, models.TaskPriorityMedium, input.Priority)
		assert.Nil(t, input.AssignedTo)
	})

	t.Run("update keeps omitted fields empty", func(t *testing.T) {
		req := TaskRequest{}
		input, fe := req.toInput(false)
		require.Nil(t, fe)
		assert.Empty(t, input.Status)
		assert.Empty(t, input.Priority)
	})

	t.Run("parses assignee", func(t *testing.T) {
		req := TaskRequest{Title: "Write docs", AssignedTo: &assigneeStr, Status: "IN_PROGRESS", Priority: "HIGH"}
		input, fe := req.toInput(true)
		require.Nil(t, fe)
		require.NotNil(t, input.AssignedTo)
		assert.Equal(t, assignee, *input.AssignedTo)
		assert.Equal(t, models.TaskStatusInProgress, input.Status)
		assert.Equal(t, models.TaskPriorityHigh, input.Priority)
	})

	invalid := []struct {
		name     string
		req      TaskRequest
		create   bool
		wantCode string
	}{
		{"missing title on create", TaskRequest{}, true, "missing_title"},
		{"unknown status", TaskRequest{Title: "x", Status: "ARCHIVED"}, true, "invalid_status"},
		{"unknown priority", TaskRequest{Priority: "URGENT"}, false, "invalid_priority"},
		{"bad assignee", TaskRequest{Title: "x", AssignedTo: &badAssignee}, true, "invalid_assignee"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, fe := tt.req.toInput(tt.create)
			require.NotNil(t, fe)
			assert.Equal(t, tt.wantCode, fe.code)
		})
	}
}

func TestTasksHandler_Create(t *testing.T) {
	task := &models.Task{ID: uuid.New(), Title: "Write docs", TaskCode: "task-abc123"}
	svc := &mockTaskService{task: task}
	h := NewTasksHandler(svc, zap.NewNop())

	req := withCaller(httptest.NewRequest(http.MethodPost, "/", jsonBody(t, TaskRequest{Title: "Write docs", Priority: "LOW"})), uuid.New())
	req.SetPathValue("wid", uuid.NewString())
	req.SetPathValue("pid", uuid.NewString())
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Write docs", svc.gotInput.Title)
	assert.Equal(t, models.TaskPriorityLow, svc.gotInput.Priority)
}

func TestTasksHandler_List_Filters(t *testing.T) {
	projectID, assignee := uuid.New(), uuid.New()

	t.Run("parses query", func(t *testing.T) {
		svc := &mockTaskService{tasks: []*models.Task{}}
		h := NewTasksHandler(svc, zap.NewNop())

		target := "/?project_id=" + projectID.String() + "&status=DONE&assigned_to=" + assignee.String()
		req := withCaller(httptest.NewRequest(http.MethodGet, target, nil), uuid.New())
		req.SetPathValue("wid", uuid.NewString())
		rec := httptest.NewRecorder()
		h.List(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.gotFilter.ProjectID)
		assert.Equal(t, projectID, *svc.gotFilter.ProjectID)
		require.NotNil(t, svc.gotFilter.Status)
		assert.Equal(t, models.TaskStatusDone, *svc.gotFilter.Status)
		require.NotNil(t, svc.gotFilter.AssignedTo)
		assert.Equal(t, assignee, *svc.gotFilter.AssignedTo)
	})

	t.Run("rejects bad status", func(t *testing.T) {
		h := NewTasksHandler(&mockTaskService{}, zap.NewNop())

		req := withCaller(httptest.NewRequest(http.MethodGet, "/?status=LATER", nil), uuid.New())
		req.SetPathValue("wid", uuid.NewString())
		rec := httptest.NewRecorder()
		h.List(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "invalid_status", body["error"])
	})
}
