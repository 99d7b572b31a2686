package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

// RolesHandler serves the seeded role catalog.
type RolesHandler struct {
	roles  services.RoleService
	logger *zap.Logger
}

// NewRolesHandler creates a new roles handler.
func NewRolesHandler(roles services.RoleService, logger *zap.Logger) *RolesHandler {
	return &RolesHandler{roles: roles, logger: logger}
}

// RegisterRoutes registers the roles handler's routes on the given mux.
func (h *RolesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("GET /api/roles", authMiddleware.RequireAuth(scope(h.List)))
}

// List handles GET /api/roles.
func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, roles, h.logger)
}
