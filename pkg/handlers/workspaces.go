package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

// WorkspaceRequest is the request body for creating or updating a workspace.
type WorkspaceRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// WorkspaceDeletedResponse reports where the caller's current workspace
// points after a deletion. Nil means the caller has no workspace left.
type WorkspaceDeletedResponse struct {
	CurrentWorkspaceID *string `json:"current_workspace_id"`
}

// WorkspacesHandler handles workspace HTTP requests.
type WorkspacesHandler struct {
	workspaces services.WorkspaceService
	logger     *zap.Logger
}

// NewWorkspacesHandler creates a new workspaces handler.
func NewWorkspacesHandler(workspaces services.WorkspaceService, logger *zap.Logger) *WorkspacesHandler {
	return &WorkspacesHandler{workspaces: workspaces, logger: logger}
}

// RegisterRoutes registers the workspaces handler's routes on the given mux.
func (h *WorkspacesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/workspaces", authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("GET /api/workspaces", authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("GET /api/workspaces/{wid}", authMiddleware.RequireAuth(scope(h.Get)))
	mux.HandleFunc("PUT /api/workspaces/{wid}", authMiddleware.RequireAuth(scope(h.Update)))
	mux.HandleFunc("DELETE /api/workspaces/{wid}", authMiddleware.RequireAuth(scope(h.Delete)))
	mux.HandleFunc("GET /api/workspaces/{wid}/analytics", authMiddleware.RequireAuth(scope(h.Analytics)))
	mux.HandleFunc("POST /api/workspaces/{wid}/invite-code", authMiddleware.RequireAuth(scope(h.ResetInviteCode)))
}

// Create handles POST /api/workspaces.
func (h *WorkspacesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req WorkspaceRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if fe := validateWorkspace(req.Name, req.Description); fe != nil {
		writeBadRequest(w, fe.code, fe.message, h.logger)
		return
	}

	ws, err := h.workspaces.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, ws, h.logger)
}

// List handles GET /api/workspaces.
func (h *WorkspacesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.workspaces.ListForUser(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, list, h.logger)
}

// Get handles GET /api/workspaces/{wid}.
func (h *WorkspacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	detail, err := h.workspaces.Get(r.Context(), userID, workspaceID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, detail, h.logger)
}

// Update handles PUT /api/workspaces/{wid}.
func (h *WorkspacesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	var req WorkspaceRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	if fe := validateWorkspace(req.Name, req.Description); fe != nil {
		writeBadRequest(w, fe.code, fe.message, h.logger)
		return
	}

	ws, err := h.workspaces.Update(r.Context(), userID, workspaceID, req.Name, req.Description)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, ws, h.logger)
}

// Delete handles DELETE /api/workspaces/{wid}.
func (h *WorkspacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	current, err := h.workspaces.Delete(r.Context(), userID, workspaceID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	var resp WorkspaceDeletedResponse
	if current != nil {
		id := current.String()
		resp.CurrentWorkspaceID = &id
	}
	writeData(w, http.StatusOK, resp, h.logger)
}

// Analytics handles GET /api/workspaces/{wid}/analytics.
func (h *WorkspacesHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	stats, err := h.workspaces.Analytics(r.Context(), userID, workspaceID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, stats, h.logger)
}

// ResetInviteCode handles POST /api/workspaces/{wid}/invite-code.
func (h *WorkspacesHandler) ResetInviteCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	ws, err := h.workspaces.ResetInviteCode(r.Context(), userID, workspaceID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, ws, h.logger)
}
