package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/loginhistory/internal/auth"
)

// Admin audit event types
const (
	AuditRetentionUpdated = "retention_policy_updated"
	AuditSweepRun         = "retention_sweep_run"
	AuditPerPageUpdated   = "per_page_preference_updated"
)

// AdminAuditor records changes made through the admin API
type AdminAuditor interface {
	LogAdminAction(ctx context.Context, eventType, userID string, metadata map[string]string)
}

// auditAdminAction attributes an admin change to the authenticated user. A nil auditor is a no-op.
func auditAdminAction(auditor AdminAuditor, r *http.Request, eventType string, metadata map[string]string) {
	if auditor == nil {
		return
	}
	userID := ""
	if claims := auth.GetUserFromContext(r); claims != nil {
		userID = claims.UserID
	}
	auditor.LogAdminAction(r.Context(), eventType, userID, metadata)
}
