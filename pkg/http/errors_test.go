package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/BradenHooton/loginhistory/pkg/http"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]int64{"id": 7})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, w.Body.String())
}

func TestWriteValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteValidationError(w, "delete_records_after_days", "Please enter a numeric value between 0 and 10000")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{
		"error": "validation_failed",
		"message": "Please enter a numeric value between 0 and 10000",
		"field": "delete_records_after_days"
	}`, w.Body.String())
}

func TestWriteServiceUnavailable(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteServiceUnavailable(w, "database unreachable")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "service_unavailable", resp.Error)
	assert.Equal(t, "database unreachable", resp.Message)
	assert.Empty(t, resp.Field)
}

func TestErrorWriters_OmitFieldOutsideValidation(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.WriteConflict(w, "A retention sweep is already running")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"conflict","message":"A retention sweep is already running"}`, w.Body.String())
}
