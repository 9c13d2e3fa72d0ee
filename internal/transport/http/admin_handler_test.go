package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"themekeys/internal/license"
)

func TestAdminHandlerGenerate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		mockCount  int
		mockBatch  []license.License
		wantStatus int
		wantError  string
	}{
		{
			name:      "valid count",
			body:      `{"count":3}`,
			mockCount: 3,
			mockBatch: []license.License{
				{LicenseKey: "TL-AAAAAAAA-11111111"},
				{LicenseKey: "TL-BBBBBBBB-22222222"},
				{LicenseKey: "TL-CCCCCCCC-33333333"},
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "count zero",
			body:       `{"count":0}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "count must be between 1 and 100",
		},
		{
			name:       "count above max",
			body:       `{"count":101}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "count must be between 1 and 100",
		},
		{
			name:       "malformed body",
			body:       `{"count":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockLicenseService)
			if tt.mockBatch != nil {
				svc.On("Generate", mock.Anything, tt.mockCount).Return(tt.mockBatch, nil)
			}

			handler := NewAdminHandler(svc, testLogger())
			req := httptest.NewRequest(http.MethodPost, "/licenses/generate", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp GenerateResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.wantError != "" {
				assert.False(t, resp.Success)
				assert.Equal(t, tt.wantError, resp.Error)
				return
			}
			assert.True(t, resp.Success)
			assert.Equal(t, len(tt.mockBatch), resp.Created)
			assert.Len(t, resp.Licenses, len(tt.mockBatch))
			svc.AssertExpectations(t)
		})
	}
}

func TestAdminHandlerListLicenses(t *testing.T) {
	now := time.Now().UTC()
	svc := new(MockLicenseService)
	svc.On("ListLicenses", mock.Anything).Return([]license.License{
		{LicenseKey: "TL-AAAAAAAA-11111111", CreatedAt: now},
		{LicenseKey: "TL-BBBBBBBB-22222222", CreatedAt: now, IsActive: true, Domain: "shop.myshopify.com"},
	}, nil)

	handler := NewAdminHandler(svc, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/licenses", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ListLicensesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Licenses, 2)
}

func TestAdminHandlerListActivations(t *testing.T) {
	svc := new(MockLicenseService)
	svc.On("ListActiveActivations", mock.Anything).Return([]license.Activation{}, nil)

	handler := NewAdminHandler(svc, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/activations", nil)
	rec := httptest.NewRecorder()

	handler.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ListActivationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Activations)
	assert.Empty(t, resp.Activations)
}
