// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-teamwork/pkg/auth"
	"github.com/ekaya-inc/ekaya-teamwork/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventAuthorizationDenied is logged when the guard rejects a request.
	EventAuthorizationDenied SecurityEventType = "authorization_denied"
	// EventSigninFailure is logged for a failed credential check.
	EventSigninFailure SecurityEventType = "signin_failure"
	// EventRoleChanged is logged when a member's role changes.
	EventRoleChanged SecurityEventType = "member_role_changed"
	// EventWorkspaceDeleted is logged after a workspace and its contents are removed.
	EventWorkspaceDeleted SecurityEventType = "workspace_deleted"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	EventType   SecurityEventType `json:"event_type"`
	WorkspaceID *uuid.UUID        `json:"workspace_id,omitempty"`
	UserID      string            `json:"user_id,omitempty"`
	Details     any               `json:"details"`
	Severity    string            `json:"severity"` // info, warning, critical
}

// AuthorizationDeniedDetails records why the guard rejected a request.
type AuthorizationDeniedDetails struct {
	Reason   string   `json:"reason"` // not_a_member, insufficient_permission
	Role     string   `json:"role,omitempty"`
	Required []string `json:"required,omitempty"`
}

// RoleChangedDetails records a membership role transition.
type RoleChangedDetails struct {
	MemberUserID string `json:"member_user_id"`
	FromRole     string `json:"from_role"`
	ToRole       string `json:"to_role"`
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated
// "security_audit" logger namespace for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogAuthorizationDenied records a rejected workspace operation at WARN level.
// userID is passed explicitly because the guard runs below the HTTP layer.
func (a *SecurityAuditor) LogAuthorizationDenied(
	ctx context.Context,
	workspaceID, userID uuid.UUID,
	details AuthorizationDeniedDetails,
) {
	event := SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   EventAuthorizationDenied,
		WorkspaceID: &workspaceID,
		UserID:      userID.String(),
		Details:     details,
		Severity:    "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Authorization denied",
		zap.String("event_json", string(eventJSON)),
		zap.String("workspace_id", workspaceID.String()),
		zap.String("user_id", userID.String()),
		zap.String("reason", details.Reason),
		zap.String("severity", "warning"),
	)
}

// LogSigninFailure records a failed signin. The email is masked.
func (a *SecurityAuditor) LogSigninFailure(ctx context.Context, email, reason string) {
	masked := logging.MaskEmail(email)
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventSigninFailure,
		Details: map[string]string{
			"email":  masked,
			"reason": reason,
		},
		Severity: "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("Signin failed",
		zap.String("event_json", string(eventJSON)),
		zap.String("email", masked),
		zap.String("reason", reason),
		zap.String("severity", "warning"),
	)
}

// LogRoleChanged records a membership role change made by the caller in ctx.
func (a *SecurityAuditor) LogRoleChanged(ctx context.Context, workspaceID uuid.UUID, details RoleChangedDetails) {
	userID := auth.GetUserIDFromContext(ctx)

	event := SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   EventRoleChanged,
		WorkspaceID: &workspaceID,
		UserID:      userID,
		Details:     details,
		Severity:    "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Member role changed",
		zap.String("event_json", string(eventJSON)),
		zap.String("workspace_id", workspaceID.String()),
		zap.String("member_user_id", details.MemberUserID),
		zap.String("from_role", details.FromRole),
		zap.String("to_role", details.ToRole),
		zap.String("user_id", userID),
		zap.String("severity", "info"),
	)
}

// LogWorkspaceDeleted records a completed workspace deletion.
func (a *SecurityAuditor) LogWorkspaceDeleted(ctx context.Context, workspaceID uuid.UUID, removed map[string]int64) {
	userID := auth.GetUserIDFromContext(ctx)

	event := SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   EventWorkspaceDeleted,
		WorkspaceID: &workspaceID,
		UserID:      userID,
		Details:     removed,
		Severity:    "info",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Workspace deleted",
		zap.String("event_json", string(eventJSON)),
		zap.String("workspace_id", workspaceID.String()),
		zap.String("user_id", userID),
		zap.String("severity", "info"),
	)
}
