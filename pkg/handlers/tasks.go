package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

// TaskRequest is the request body for creating or updating a task. On
// update, omitted fields keep their stored values.
type TaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssignedTo  *string    `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
}

// TasksHandler handles task HTTP requests.
type TasksHandler struct {
	tasks  services.TaskService
	logger *zap.Logger
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(tasks services.TaskService, logger *zap.Logger) *TasksHandler {
	return &TasksHandler{tasks: tasks, logger: logger}
}

// RegisterRoutes registers the tasks handler's routes on the given mux.
func (h *TasksHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/workspaces/{wid}/projects/{pid}/tasks", authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("PUT /api/workspaces/{wid}/projects/{pid}/tasks/{tid}", authMiddleware.RequireAuth(scope(h.Update)))
	mux.HandleFunc("GET /api/workspaces/{wid}/tasks", authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("GET /api/workspaces/{wid}/tasks/{tid}", authMiddleware.RequireAuth(scope(h.Get)))
	mux.HandleFunc("DELETE /api/workspaces/{wid}/tasks/{tid}", authMiddleware.RequireAuth(scope(h.Delete)))
}

// toInput validates req. On create, empty status and priority take their
// defaults; on update they stay empty so the stored values are kept.
func (req *TaskRequest) toInput(create bool) (services.TaskInput, *fieldError) {
	input := services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	}

	if fe := validateTitle(req.Title, create); fe != nil {
		return input, fe
	}
	if req.Description != nil && len([]rune(*req.Description)) > maxDescriptionLength {
		return input, &fieldError{"invalid_description", "Description must be at most 500 characters"}
	}

	if create || req.Status != "" {
		status, err := models.ParseTaskStatus(req.Status)
		if err != nil {
			return input, &fieldError{"invalid_status", err.Error()}
		}
		input.Status = status
	}
	if create || req.Priority != "" {
		priority, err := models.ParseTaskPriority(req.Priority)
		if err != nil {
			return input, &fieldError{"invalid_priority", err.Error()}
		}
		input.Priority = priority
	}

	if req.AssignedTo != nil && *req.AssignedTo != "" {
		assignee, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			return input, &fieldError{"invalid_assignee", "Invalid assignee ID format"}
		}
		input.AssignedTo = &assignee
	}
	return input, nil
}

// Create handles POST /api/workspaces/{wid}/projects/{pid}/tasks.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, projectID, ok := ParseWorkspaceAndProjectIDs(w, r, h.logger)
	if !ok {
		return
	}

	var req TaskRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	input, fe := req.toInput(true)
	if fe != nil {
		writeBadRequest(w, fe.code, fe.message, h.logger)
		return
	}

	task, err := h.tasks.Create(r.Context(), userID, workspaceID, projectID, input)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, task, h.logger)
}

// Update handles PUT /api/workspaces/{wid}/projects/{pid}/tasks/{tid}.
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, projectID, ok := ParseWorkspaceAndProjectIDs(w, r, h.logger)
	if !ok {
		return
	}
	taskID, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	var req TaskRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	input, fe := req.toInput(false)
	if fe != nil {
		writeBadRequest(w, fe.code, fe.message, h.logger)
		return
	}

	task, err := h.tasks.Update(r.Context(), userID, workspaceID, projectID, taskID, input)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, task, h.logger)
}

// List handles GET /api/workspaces/{wid}/tasks.
// Optional query filters: project_id, status, assigned_to.
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	var filter models.TaskFilter
	q := r.URL.Query()
	if v := q.Get("project_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeBadRequest(w, "invalid_project_id", "Invalid project ID format", h.logger)
			return
		}
		filter.ProjectID = &id
	}
	if v := q.Get("status"); v != "" {
		status, err := models.ParseTaskStatus(v)
		if err != nil {
			writeBadRequest(w, "invalid_status", err.Error(), h.logger)
			return
		}
		filter.Status = &status
	}
	if v := q.Get("assigned_to"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeBadRequest(w, "invalid_assignee", "Invalid assignee ID format", h.logger)
			return
		}
		filter.AssignedTo = &id
	}

	tasks, err := h.tasks.List(r.Context(), userID, workspaceID, filter)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, tasks, h.logger)
}

// Get handles GET /api/workspaces/{wid}/tasks/{tid}.
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}
	taskID, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), userID, workspaceID, taskID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, task, h.logger)
}

// Delete handles DELETE /api/workspaces/{wid}/tasks/{tid}.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}
	taskID, ok := ParseTaskID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), userID, workspaceID, taskID); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
