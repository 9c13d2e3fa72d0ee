package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themekeys/internal/registry"
	"themekeys/internal/services"
)

func newHealthHandler() *HealthHandler {
	svc := services.NewHealthService("v1.2.0-test", registry.NewMemoryStore(), testLogger())
	return NewHealthHandler(svc, testLogger())
}

func TestHealthHandlerHealth(t *testing.T) {
	handler := newHealthHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "ok", status.Checks["registry"])
}

func TestHealthHandlerReadyAndLive(t *testing.T) {
	handler := newHealthHandler()

	for path, want := range map[string]string{
		"/ready": "ready",
		"/live":  "alive",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, want, body["status"])
	}
}

func TestHealthHandlerVersion(t *testing.T) {
	handler := newHealthHandler()

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	http.HandlerFunc(handler.Version).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var info services.VersionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "v1.2.0-test", info.Version)
}
