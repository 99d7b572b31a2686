package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

// CurrentUserResponse is the profile of the signed-in user.
type CurrentUserResponse struct {
	User       *models.User        `json:"user"`
	Workspaces []*models.Workspace `json:"workspaces"`
}

// SetCurrentWorkspaceRequest is the request body for PUT /api/user/current-workspace.
type SetCurrentWorkspaceRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// UsersHandler serves the signed-in user's profile.
type UsersHandler struct {
	accounts   services.AccountService
	workspaces services.WorkspaceService
	logger     *zap.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(accounts services.AccountService, workspaces services.WorkspaceService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		accounts:   accounts,
		workspaces: workspaces,
		logger:     logger,
	}
}

// RegisterRoutes registers the users handler's routes on the given mux.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/user/current", authMiddleware.RequireAuth(scope(h.GetCurrent)))
	mux.HandleFunc("PUT /api/user/current-workspace", authMiddleware.RequireAuth(scope(h.SetCurrentWorkspace)))
}

// GetCurrent handles GET /api/user/current.
func (h *UsersHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.accounts.GetCurrent(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	workspaces, err := h.workspaces.ListForUser(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, CurrentUserResponse{User: user, Workspaces: workspaces}, h.logger)
}

// SetCurrentWorkspace handles PUT /api/user/current-workspace.
func (h *UsersHandler) SetCurrentWorkspace(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req SetCurrentWorkspaceRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	workspaceID, err := uuid.Parse(req.WorkspaceID)
	if err != nil {
		writeBadRequest(w, "invalid_workspace_id", "Invalid workspace ID format", h.logger)
		return
	}

	if err := h.workspaces.SetCurrent(r.Context(), userID, workspaceID); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"current_workspace_id": workspaceID.String()}, h.logger)
}
