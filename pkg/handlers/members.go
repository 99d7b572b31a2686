package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

// ChangeRoleRequest is the request body for PUT .../members/{uid}/role.
// Version is the membership version the client last read; when present a
// concurrent change makes the request fail with 409.
type ChangeRoleRequest struct {
	RoleID  string `json:"role_id"`
	Version *int64 `json:"version,omitempty"`
}

// MembersHandler handles workspace membership HTTP requests.
type MembersHandler struct {
	members services.MemberService
	logger  *zap.Logger
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(members services.MemberService, logger *zap.Logger) *MembersHandler {
	return &MembersHandler{members: members, logger: logger}
}

// RegisterRoutes registers the members handler's routes on the given mux.
func (h *MembersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/workspaces/{wid}/members", authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("PUT /api/workspaces/{wid}/members/{uid}/role", authMiddleware.RequireAuth(scope(h.ChangeRole)))
	mux.HandleFunc("DELETE /api/workspaces/{wid}/members/{uid}", authMiddleware.RequireAuth(scope(h.Remove)))
	mux.HandleFunc("POST /api/invites/{code}/join", authMiddleware.RequireAuth(scope(h.Join)))
}

// List handles GET /api/workspaces/{wid}/members.
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	list, err := h.members.ListMembers(r.Context(), userID, workspaceID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, list, h.logger)
}

// ChangeRole handles PUT /api/workspaces/{wid}/members/{uid}/role.
func (h *MembersHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}
	memberID, ok := ParseMemberUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}
	roleID, err := uuid.Parse(req.RoleID)
	if err != nil {
		writeBadRequest(w, "invalid_role_id", "Invalid role ID format", h.logger)
		return
	}

	membership, err := h.members.ChangeRole(r.Context(), userID, workspaceID, memberID, roleID, req.Version)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, membership, h.logger)
}

// Remove handles DELETE /api/workspaces/{wid}/members/{uid}.
func (h *MembersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}
	memberID, ok := ParseMemberUserID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.members.RemoveMember(r.Context(), userID, workspaceID, memberID); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Join handles POST /api/invites/{code}/join.
func (h *MembersHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	code := r.PathValue("code")
	if code == "" {
		writeBadRequest(w, "missing_invite_code", "Invite code is required", h.logger)
		return
	}

	membership, err := h.members.JoinByInvite(r.Context(), userID, code)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, map[string]any{
		"workspace_id": membership.WorkspaceID,
		"role":         membership.RoleName,
	}, h.logger)
}
