package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/loginhistory/internal/models"
	"github.com/BradenHooton/loginhistory/internal/services"
)

func TestSettingsHandler_GetSettings(t *testing.T) {
	handler := NewSettingsHandler(&MockRetentionService{
		GetPolicyFunc: func(ctx context.Context) (models.RetentionPolicy, error) {
			return models.RetentionPolicy{DeleteAfterDays: 30}, nil
		},
	}, nil, testLogger())

	w := httptest.NewRecorder()
	handler.GetSettings(w, httptest.NewRequest(http.MethodGet, "/admin/login-history/settings", nil))

	var policy models.RetentionPolicy
	AssertJSONResponse(t, w, http.StatusOK, &policy)
	assert.Equal(t, 30, policy.DeleteAfterDays)
}

func TestSettingsHandler_UpdateSettings_AcceptsNumberOrString(t *testing.T) {
	tests := []struct {
		name string
		body string
		raw  string
	}{
		{"number", `{"delete_records_after_days": 45}`, "45"},
		{"string", `{"delete_records_after_days": "45"}`, "45"},
		{"zero disables", `{"delete_records_after_days": 0}`, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRaw string
			handler := NewSettingsHandler(&MockRetentionService{
				UpdatePolicyFromInputFunc: func(ctx context.Context, raw string) (models.RetentionPolicy, error) {
					gotRaw = raw
					return models.RetentionPolicy{DeleteAfterDays: 45}, nil
				},
			}, nil, testLogger())

			req := httptest.NewRequest(http.MethodPut, "/admin/login-history/settings", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			handler.UpdateSettings(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.raw, gotRaw)
		})
	}
}

func TestSettingsHandler_UpdateSettings_RejectedKeepsPolicy(t *testing.T) {
	handler := NewSettingsHandler(&MockRetentionService{
		UpdatePolicyFromInputFunc: func(ctx context.Context, raw string) (models.RetentionPolicy, error) {
			return models.RetentionPolicy{DeleteAfterDays: 90}, &models.ConfigurationError{
				Field:   "delete_records_after_days",
				Message: "Please enter a numeric value between 0 and 10000",
			}
		},
	}, nil, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/admin/login-history/settings", strings.NewReader(`{"delete_records_after_days": 20000}`))
	w := httptest.NewRecorder()
	handler.UpdateSettings(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp RetentionErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Error)
	assert.Equal(t, "delete_records_after_days", resp.Field)
	assert.Equal(t, "Please enter a numeric value between 0 and 10000", resp.Message)
	assert.Equal(t, 90, resp.Policy.DeleteAfterDays)
}

func TestSettingsHandler_UpdateSettings_StorageError(t *testing.T) {
	handler := NewSettingsHandler(&MockRetentionService{
		UpdatePolicyFromInputFunc: func(ctx context.Context, raw string) (models.RetentionPolicy, error) {
			return models.RetentionPolicy{}, models.ErrStorage
		},
	}, nil, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/admin/login-history/settings", strings.NewReader(`{"delete_records_after_days": 10}`))
	w := httptest.NewRecorder()
	handler.UpdateSettings(w, req)

	AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
}

func TestSettingsHandler_RunSweep(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"completed", nil, http.StatusOK},
		{"already running", models.ErrSweepInProgress, http.StatusConflict},
		{"storage failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSettingsHandler(&MockRetentionService{
				RunFunc: func(ctx context.Context) (*services.SweepResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &services.SweepResult{RunID: "run-1", Deleted: 3}, nil
				},
			}, nil, testLogger())

			w := httptest.NewRecorder()
			handler.RunSweep(w, httptest.NewRequest(http.MethodPost, "/admin/login-history/sweep", nil))

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSettingsHandler_UpdateSettings_Audited(t *testing.T) {
	auditor := &MockAdminAuditor{}
	handler := NewSettingsHandler(&MockRetentionService{
		UpdatePolicyFromInputFunc: func(ctx context.Context, raw string) (models.RetentionPolicy, error) {
			return models.RetentionPolicy{DeleteAfterDays: 60}, nil
		},
	}, auditor, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/admin/login-history/settings", strings.NewReader(`{"delete_records_after_days": 60}`))
	w := httptest.NewRecorder()
	handler.UpdateSettings(w, WithAdminContext(req, "admin-1", "root"))

	assert.Equal(t, http.StatusOK, w.Code)
	call := auditor.LastCall()
	if assert.NotNil(t, call) {
		assert.Equal(t, AuditRetentionUpdated, call.EventType)
		assert.Equal(t, "admin-1", call.UserID)
		assert.Equal(t, "60", call.Metadata["delete_records_after_days"])
	}
}

func TestSettingsHandler_UpdateSettings_RejectedNotAudited(t *testing.T) {
	auditor := &MockAdminAuditor{}
	handler := NewSettingsHandler(&MockRetentionService{
		UpdatePolicyFromInputFunc: func(ctx context.Context, raw string) (models.RetentionPolicy, error) {
			return models.RetentionPolicy{DeleteAfterDays: 90}, &models.ConfigurationError{Field: "delete_records_after_days", Message: "bad"}
		},
	}, auditor, testLogger())

	req := httptest.NewRequest(http.MethodPut, "/admin/login-history/settings", strings.NewReader(`{"delete_records_after_days": -1}`))
	w := httptest.NewRecorder()
	handler.UpdateSettings(w, WithAdminContext(req, "admin-1", "root"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, auditor.LastCall())
}

func TestSettingsHandler_RunSweep_Audited(t *testing.T) {
	auditor := &MockAdminAuditor{}
	handler := NewSettingsHandler(&MockRetentionService{
		RunFunc: func(ctx context.Context) (*services.SweepResult, error) {
			return &services.SweepResult{RunID: "run-9", Deleted: 12}, nil
		},
	}, auditor, testLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/login-history/sweep", nil)
	handler.RunSweep(w, WithAdminContext(req, "admin-2", "root"))

	assert.Equal(t, http.StatusOK, w.Code)
	call := auditor.LastCall()
	if assert.NotNil(t, call) {
		assert.Equal(t, AuditSweepRun, call.EventType)
		assert.Equal(t, "admin-2", call.UserID)
		assert.Equal(t, "run-9", call.Metadata["run_id"])
		assert.Equal(t, "12", call.Metadata["deleted"])
	}
}
