package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/BradenHooton/loginhistory/internal/auth"
	"github.com/BradenHooton/loginhistory/internal/models"
	"github.com/BradenHooton/loginhistory/internal/services"
	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
)

// AuthLogTableService defines the admin table contract
type AuthLogTableService interface {
	ParseViewState(values url.Values, preferredPerPage *int) services.ViewState
	BuildTable(ctx context.Context, state services.ViewState) *services.TableView
	PreferredPerPage(ctx context.Context, userID string) *int
	SetPerPage(ctx context.Context, userID string, perPage int) error
}

// PerPageRequest sets the admin's entries-per-page preference
type PerPageRequest struct {
	PerPage int `json:"per_page" validate:"required,gte=1,lte=999"`
}

// AuthLogHandler serves the login history table
type AuthLogHandler struct {
	service AuthLogTableService
	auditor AdminAuditor
	logger  *slog.Logger
}

// NewAuthLogHandler creates a new AuthLogHandler. auditor may be nil.
func NewAuthLogHandler(service AuthLogTableService, auditor AdminAuditor, logger *slog.Logger) *AuthLogHandler {
	return &AuthLogHandler{service: service, auditor: auditor, logger: logger}
}

// GetTable handles GET /admin/login-history
// Accepts s, from, to, result, view, orderby, order, paged and per_page query params.
// Query failures are reported in the body's error field with a 200.
func (h *AuthLogHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	var preferred *int
	if claims := auth.GetUserFromContext(r); claims != nil {
		preferred = h.service.PreferredPerPage(r.Context(), claims.UserID)
	}

	state := h.service.ParseViewState(r.URL.Query(), preferred)
	pkghttp.WriteJSON(w, http.StatusOK, h.service.BuildTable(r.Context(), state))
}

// SetPerPage handles PUT /admin/login-history/preferences
func (h *AuthLogHandler) SetPerPage(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req PerPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		writeValidationFailure(w, err)
		return
	}

	if err := h.service.SetPerPage(r.Context(), claims.UserID, req.PerPage); err != nil {
		var cfgErr *models.ConfigurationError
		if errors.As(err, &cfgErr) {
			pkghttp.WriteValidationError(w, cfgErr.Field, cfgErr.Message)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to save page size preference", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Failed to save preference")
		return
	}

	auditAdminAction(h.auditor, r, AuditPerPageUpdated, map[string]string{
		"per_page": strconv.Itoa(req.PerPage),
	})
	pkghttp.WriteJSON(w, http.StatusOK, req)
}

func writeValidationFailure(w http.ResponseWriter, err error) {
	var ve *ValidationErrorResponse
	if errors.As(err, &ve) {
		pkghttp.WriteValidationError(w, ve.Field, ve.Message)
		return
	}
	pkghttp.WriteBadRequest(w, err.Error())
}
