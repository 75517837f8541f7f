package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/loginhistory/internal/auth"
	"github.com/BradenHooton/loginhistory/internal/models"
	"github.com/BradenHooton/loginhistory/internal/services"
	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAdminContext adds admin claims to request context
func WithAdminContext(req *http.Request, userID, username string) *http.Request {
	claims := &models.TokenClaims{
		UserID:   userID,
		Username: username,
		Role:     models.RoleAdmin,
		Type:     "access",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockLoginRecorder implements LoginRecorder for testing
type MockLoginRecorder struct {
	RecordSuccessFunc func(ctx context.Context, rc pkghttp.RequestContext, username, accountID string, at time.Time) (*models.AuthLogEntry, error)
	RecordFailureFunc func(ctx context.Context, rc pkghttp.RequestContext, username string, at time.Time, code, message string) (*models.AuthLogEntry, error)
}

func (m *MockLoginRecorder) RecordSuccess(ctx context.Context, rc pkghttp.RequestContext, username, accountID string, at time.Time) (*models.AuthLogEntry, error) {
	if m.RecordSuccessFunc == nil {
		return nil, nil
	}
	return m.RecordSuccessFunc(ctx, rc, username, accountID, at)
}

func (m *MockLoginRecorder) RecordFailure(ctx context.Context, rc pkghttp.RequestContext, username string, at time.Time, code, message string) (*models.AuthLogEntry, error) {
	if m.RecordFailureFunc == nil {
		return nil, nil
	}
	return m.RecordFailureFunc(ctx, rc, username, at, code, message)
}

// MockAuthLogTableService implements AuthLogTableService for testing
type MockAuthLogTableService struct {
	ParseViewStateFunc   func(values url.Values, preferredPerPage *int) services.ViewState
	BuildTableFunc       func(ctx context.Context, state services.ViewState) *services.TableView
	PreferredPerPageFunc func(ctx context.Context, userID string) *int
	SetPerPageFunc       func(ctx context.Context, userID string, perPage int) error
}

func (m *MockAuthLogTableService) ParseViewState(values url.Values, preferredPerPage *int) services.ViewState {
	if m.ParseViewStateFunc == nil {
		return services.ViewState{View: services.ViewAll}
	}
	return m.ParseViewStateFunc(values, preferredPerPage)
}

func (m *MockAuthLogTableService) BuildTable(ctx context.Context, state services.ViewState) *services.TableView {
	if m.BuildTableFunc == nil {
		return &services.TableView{Rows: []services.TableRow{}, TotalPages: 1, Page: 1}
	}
	return m.BuildTableFunc(ctx, state)
}

func (m *MockAuthLogTableService) PreferredPerPage(ctx context.Context, userID string) *int {
	if m.PreferredPerPageFunc == nil {
		return nil
	}
	return m.PreferredPerPageFunc(ctx, userID)
}

func (m *MockAuthLogTableService) SetPerPage(ctx context.Context, userID string, perPage int) error {
	if m.SetPerPageFunc == nil {
		return nil
	}
	return m.SetPerPageFunc(ctx, userID, perPage)
}

// MockRetentionService implements RetentionServiceInterface for testing
type MockRetentionService struct {
	GetPolicyFunc             func(ctx context.Context) (models.RetentionPolicy, error)
	UpdatePolicyFromInputFunc func(ctx context.Context, raw string) (models.RetentionPolicy, error)
	RunFunc                   func(ctx context.Context) (*services.SweepResult, error)
}

func (m *MockRetentionService) GetPolicy(ctx context.Context) (models.RetentionPolicy, error) {
	if m.GetPolicyFunc == nil {
		return models.DefaultRetentionPolicy(), nil
	}
	return m.GetPolicyFunc(ctx)
}

func (m *MockRetentionService) UpdatePolicyFromInput(ctx context.Context, raw string) (models.RetentionPolicy, error) {
	if m.UpdatePolicyFromInputFunc == nil {
		return models.DefaultRetentionPolicy(), nil
	}
	return m.UpdatePolicyFromInputFunc(ctx, raw)
}

func (m *MockRetentionService) Run(ctx context.Context) (*services.SweepResult, error) {
	if m.RunFunc == nil {
		return &services.SweepResult{}, nil
	}
	return m.RunFunc(ctx)
}

// MockLastLoginService implements LastLoginServiceInterface for testing
type MockLastLoginService struct {
	CellsFunc func(ctx context.Context, users []services.UserRef) ([]services.LastLoginCell, error)
}

func (m *MockLastLoginService) Cells(ctx context.Context, users []services.UserRef) ([]services.LastLoginCell, error) {
	if m.CellsFunc == nil {
		return []services.LastLoginCell{}, nil
	}
	return m.CellsFunc(ctx, users)
}

// MockPinger implements Pinger for testing
type MockPinger struct {
	Err error
}

func (m *MockPinger) HealthCheck(ctx context.Context) error {
	return m.Err
}

// AdminAuditCall is one recorded LogAdminAction call
type AdminAuditCall struct {
	EventType string
	UserID    string
	Metadata  map[string]string
}

// MockAdminAuditor records admin audit events
type MockAdminAuditor struct {
	calls []AdminAuditCall
}

func (m *MockAdminAuditor) LogAdminAction(ctx context.Context, eventType, userID string, metadata map[string]string) {
	m.calls = append(m.calls, AdminAuditCall{EventType: eventType, UserID: userID, Metadata: metadata})
}

// LastCall returns the most recent audit event, or nil when none was logged
func (m *MockAdminAuditor) LastCall() *AdminAuditCall {
	if len(m.calls) == 0 {
		return nil
	}
	return &m.calls[len(m.calls)-1]
}
