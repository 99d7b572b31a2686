package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/config"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/models"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/services"
)

const (
	pingStatusOK       = "ok"
	pingStatusDegraded = "degraded"
)

// PingResponse reports build details and whether the role catalog is ready.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname,omitempty"`
	Environment string `json:"environment"`
	SeededRoles int    `json:"seeded_roles"`
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	cfg    *config.Config
	roles  services.RoleService
	logger *zap.Logger
}

func NewHealthHandler(cfg *config.Config, roles services.RoleService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, roles: roles, logger: logger}
}

// RegisterRoutes registers the probes. /ping reads the database, so it runs
// inside a scoped connection; /health never touches it.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux, scope ScopeMiddleware) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", scope(h.Ping))
}

// Health handles GET /health for load balancer liveness checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping. It answers 503 until every role in the catalog
// has been seeded, since no workspace can be created before that.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	resp := PingResponse{
		Status:      pingStatusOK,
		Version:     h.cfg.Version,
		Service:     "ekaya-teamwork",
		GoVersion:   runtime.Version(),
		Environment: h.cfg.Env,
	}
	if hostname, err := os.Hostname(); err == nil {
		resp.Hostname = hostname
	}

	status := http.StatusOK
	roles, err := h.roles.List(r.Context())
	if err != nil {
		h.logger.Warn("Role catalog lookup failed", zap.Error(err))
	}
	resp.SeededRoles = len(roles)
	if err != nil || resp.SeededRoles < len(models.AllRoles()) {
		resp.Status = pingStatusDegraded
		status = http.StatusServiceUnavailable
	}

	if err := WriteJSON(w, status, resp); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
