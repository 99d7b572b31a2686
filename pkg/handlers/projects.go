package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

// ProjectRequest is the request body for creating or updating a project.
type ProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Emoji       string  `json:"emoji"`
}

// ProjectsHandler handles project HTTP requests.
type ProjectsHandler struct {
	projects services.ProjectService
	logger   *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projects services.ProjectService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, logger: logger}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/workspaces/{wid}/projects", authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("GET /api/workspaces/{wid}/projects", authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("GET /api/workspaces/{wid}/projects/{pid}", authMiddleware.RequireAuth(scope(h.Get)))
	mux.HandleFunc("PUT /api/workspaces/{wid}/projects/{pid}", authMiddleware.RequireAuth(scope(h.Update)))
	mux.HandleFunc("DELETE /api/workspaces/{wid}/projects/{pid}", authMiddleware.RequireAuth(scope(h.Delete)))
	mux.HandleFunc("GET /api/workspaces/{wid}/projects/{pid}/analytics", authMiddleware.RequireAuth(scope(h.Analytics)))
}

// Create handles POST /api/workspaces/{wid}/projects.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	var req ProjectRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if fe := validateTitle(req.Name, true); fe != nil {
		writeBadRequest(w, fe.code, fe.message, h.logger)
		return
	}

	project, err := h.projects.Create(r.Context(), userID, workspaceID, services.ProjectInput(req))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, project, h.logger)
}

// List handles GET /api/workspaces/{wid}/projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	projects, err := h.projects.List(r.Context(), userID, workspaceID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, projects, h.logger)
}

// Get handles GET /api/workspaces/{wid}/projects/{pid}.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, projectID, ok := ParseWorkspaceAndProjectIDs(w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.projects.Get(r.Context(), userID, workspaceID, projectID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, project, h.logger)
}

// Update handles PUT /api/workspaces/{wid}/projects/{pid}.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, projectID, ok := ParseWorkspaceAndProjectIDs(w, r, h.logger)
	if !ok {
		return
	}

	var req ProjectRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if fe := validateTitle(req.Name, false); fe != nil {
		writeBadRequest(w, fe.code, fe.message, h.logger)
		return
	}

	project, err := h.projects.Update(r.Context(), userID, workspaceID, projectID, services.ProjectInput(req))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, project, h.logger)
}

// Delete handles DELETE /api/workspaces/{wid}/projects/{pid}.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, projectID, ok := ParseWorkspaceAndProjectIDs(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), userID, workspaceID, projectID); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics handles GET /api/workspaces/{wid}/projects/{pid}/analytics.
func (h *ProjectsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, projectID, ok := ParseWorkspaceAndProjectIDs(w, r, h.logger)
	if !ok {
		return
	}

	stats, err := h.projects.Analytics(r.Context(), userID, workspaceID, projectID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, stats, h.logger)
}
