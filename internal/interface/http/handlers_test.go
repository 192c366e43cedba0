package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairchance/notification-service/internal/domain/shared"
)

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteDomainError_StatusMapping(t *testing.T) {
	s := &Server{}

	rec := httptest.NewRecorder()
	s.writeDomainError(rec, shared.ErrEventIDRequired)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", decodeResponse(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	s.writeDomainError(rec, shared.ErrEventNotFound)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeResponse(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	s.writeDomainError(rec, shared.NewDomainError("push", "SendMulticast", shared.ErrGatewayFailure, "down"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "gateway_failure", decodeResponse(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	s.writeDomainError(rec, shared.NewDomainError("postgres", "Reconcile", shared.ErrStorageWrite, "tx failed"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "storage_failure", decodeResponse(t, rec).Error.Code)

	rec = httptest.NewRecorder()
	s.writeDomainError(rec, errors.New("something unexpected"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeResponse(t, rec).Error.Code)
}

func TestDecodeJSONBody(t *testing.T) {
	var dst broadcastRequest

	// Empty body is valid: broadcasts take no required fields.
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, decodeJSONBody(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"entrantId":"e1","message":"hi"}`))
	require.NoError(t, decodeJSONBody(req, &dst))
	assert.Equal(t, "e1", dst.EntrantID)
	assert.Equal(t, "hi", dst.Message)

	// Unknown fields surface as errors rather than being dropped.
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"entrantid_typo":"e1"}`))
	assert.Error(t, decodeJSONBody(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	assert.Error(t, decodeJSONBody(req, &dst))
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))

	// Separate keys have separate budgets.
	assert.True(t, rl.Allow("5.6.7.8"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", getClientIP(req))
}
