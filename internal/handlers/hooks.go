package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/loginhistory/internal/models"
	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
)

// maxHookBodyBytes bounds hook payloads; a server map is a few KB at most
const maxHookBodyBytes = 64 << 10

// LoginRecorder is the part of the recorder the hooks need
type LoginRecorder interface {
	RecordSuccess(ctx context.Context, rc pkghttp.RequestContext, username, accountID string, at time.Time) (*models.AuthLogEntry, error)
	RecordFailure(ctx context.Context, rc pkghttp.RequestContext, username string, at time.Time, code, message string) (*models.AuthLogEntry, error)
}

// LoginSuccessRequest is posted by the host after a successful login
type LoginSuccessRequest struct {
	Username    string            `json:"username" validate:"required"`
	AccountID   string            `json:"account_id" validate:"max=100"`
	AttemptTime int64             `json:"attempt_time" validate:"gte=0"`
	Server      map[string]string `json:"server"`
}

// LoginFailureError is the host's description of why a login failed
type LoginFailureError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LoginFailureRequest is posted by the host after a failed login. Username may be empty.
type LoginFailureRequest struct {
	Username    string            `json:"username"`
	AttemptTime int64             `json:"attempt_time" validate:"gte=0"`
	Error       LoginFailureError `json:"error"`
	Server      map[string]string `json:"server"`
}

// HookResponse acknowledges a login hook
type HookResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id,omitempty"`
}

// HookHandler receives login outcomes from hosts that cannot call the recorder in-process
type HookHandler struct {
	recorder LoginRecorder
	logger   *slog.Logger
}

// NewHookHandler creates a new HookHandler
func NewHookHandler(recorder LoginRecorder, logger *slog.Logger) *HookHandler {
	return &HookHandler{recorder: recorder, logger: logger}
}

// LoginSuccess handles POST /hooks/login/success
func (h *HookHandler) LoginSuccess(w http.ResponseWriter, r *http.Request) {
	var req LoginSuccessRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.recorder.RecordSuccess(r.Context(), h.requestContext(r, req.Server), req.Username, req.AccountID, unixOrZero(req.AttemptTime))
	h.respond(w, r, entry, err)
}

// LoginFailure handles POST /hooks/login/failure
func (h *HookHandler) LoginFailure(w http.ResponseWriter, r *http.Request) {
	var req LoginFailureRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.recorder.RecordFailure(r.Context(), h.requestContext(r, req.Server), req.Username, unixOrZero(req.AttemptTime), req.Error.Code, req.Error.Message)
	h.respond(w, r, entry, err)
}

func (h *HookHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxHookBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return false
	}

	if err := ValidateRequest(dst); err != nil {
		writeValidationFailure(w, err)
		return false
	}
	return true
}

// requestContext prefers the forwarded server variables of the original login request.
// Without them, the hook request itself stands in.
func (h *HookHandler) requestContext(r *http.Request, server map[string]string) pkghttp.RequestContext {
	if len(server) > 0 {
		return pkghttp.NewRequestContext(server)
	}
	return pkghttp.RequestContextFromHTTP(r)
}

// respond acknowledges the hook. Storage failures are already logged and alerted by the
// recorder and must not break the host's login flow, so they still get a 202.
func (h *HookHandler) respond(w http.ResponseWriter, r *http.Request, entry *models.AuthLogEntry, err error) {
	if err != nil {
		h.logger.WarnContext(r.Context(), "login hook accepted without persisting", slog.Any("error", err))
		pkghttp.WriteJSON(w, http.StatusAccepted, HookResponse{Status: "accepted"})
		return
	}

	resp := HookResponse{Status: "recorded"}
	if entry != nil && entry.ID != nil {
		resp.ID = *entry.ID
	}
	pkghttp.WriteJSON(w, http.StatusAccepted, resp)
}

func unixOrZero(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
