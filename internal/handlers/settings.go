package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/BradenHooton/loginhistory/internal/models"
	"github.com/BradenHooton/loginhistory/internal/services"
	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
)

// RetentionServiceInterface defines the retention settings and sweep contract
type RetentionServiceInterface interface {
	GetPolicy(ctx context.Context) (models.RetentionPolicy, error)
	UpdatePolicyFromInput(ctx context.Context, raw string) (models.RetentionPolicy, error)
	Run(ctx context.Context) (*services.SweepResult, error)
}

// RetentionSettingsRequest accepts the retention period as a JSON number or string
type RetentionSettingsRequest struct {
	DeleteRecordsAfterDays json.RawMessage `json:"delete_records_after_days"`
}

// RetentionErrorResponse is a validation error that also carries the policy still in effect
type RetentionErrorResponse struct {
	pkghttp.ErrorResponse
	Policy models.RetentionPolicy `json:"policy"`
}

// SettingsHandler handles retention settings and manual sweeps
type SettingsHandler struct {
	service RetentionServiceInterface
	auditor AdminAuditor
	logger  *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler. auditor may be nil.
func NewSettingsHandler(service RetentionServiceInterface, auditor AdminAuditor, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{service: service, auditor: auditor, logger: logger}
}

// GetSettings handles GET /admin/login-history/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	policy, err := h.service.GetPolicy(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read retention policy", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to retrieve settings")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, policy)
}

// UpdateSettings handles PUT /admin/login-history/settings.
// A rejected value leaves the stored policy unchanged and is reported with a 400.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req RetentionSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	raw := strings.Trim(strings.TrimSpace(string(req.DeleteRecordsAfterDays)), `"`)

	policy, err := h.service.UpdatePolicyFromInput(r.Context(), raw)
	if err != nil {
		var cfgErr *models.ConfigurationError
		if errors.As(err, &cfgErr) {
			pkghttp.WriteJSON(w, http.StatusBadRequest, RetentionErrorResponse{
				ErrorResponse: pkghttp.ErrorResponse{
					Error:   "validation_failed",
					Message: cfgErr.Message,
					Field:   cfgErr.Field,
				},
				Policy: policy,
			})
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to save retention policy", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to save settings")
		return
	}

	auditAdminAction(h.auditor, r, AuditRetentionUpdated, map[string]string{
		"delete_records_after_days": strconv.Itoa(policy.DeleteAfterDays),
	})
	pkghttp.WriteJSON(w, http.StatusOK, policy)
}

// RunSweep handles POST /admin/login-history/sweep
func (h *SettingsHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Run(r.Context())
	if err != nil {
		if errors.Is(err, models.ErrSweepInProgress) {
			pkghttp.WriteConflict(w, "A retention sweep is already running")
			return
		}
		pkghttp.WriteInternalError(w, "Retention sweep failed")
		return
	}

	auditAdminAction(h.auditor, r, AuditSweepRun, map[string]string{
		"run_id":  result.RunID,
		"deleted": strconv.FormatInt(result.Deleted, 10),
	})
	pkghttp.WriteJSON(w, http.StatusOK, result)
}
