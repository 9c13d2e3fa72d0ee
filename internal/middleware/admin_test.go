package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	tests := []struct {
		name           string
		configured     string
		authHeader     string
		wantStatusCode int
		wantNextCalled bool
	}{
		{
			name:           "valid token",
			configured:     "secret-token",
			authHeader:     "Bearer secret-token",
			wantStatusCode: http.StatusOK,
			wantNextCalled: true,
		},
		{
			name:           "missing header",
			configured:     "secret-token",
			authHeader:     "",
			wantStatusCode: http.StatusUnauthorized,
			wantNextCalled: false,
		},
		{
			name:           "wrong scheme",
			configured:     "secret-token",
			authHeader:     "Basic secret-token",
			wantStatusCode: http.StatusUnauthorized,
			wantNextCalled: false,
		},
		{
			name:           "wrong token",
			configured:     "secret-token",
			authHeader:     "Bearer not-the-token",
			wantStatusCode: http.StatusForbidden,
			wantNextCalled: false,
		},
		{
			name:           "empty presented token",
			configured:     "secret-token",
			authHeader:     "Bearer ",
			wantStatusCode: http.StatusForbidden,
			wantNextCalled: false,
		},
		{
			name:           "no token configured",
			configured:     "",
			authHeader:     "Bearer anything",
			wantStatusCode: http.StatusServiceUnavailable,
			wantNextCalled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			handler := AdminAuth(tt.configured, logger)(next)

			req := httptest.NewRequest(http.MethodGet, "/api/admin/licenses", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantNextCalled, nextCalled)

			if !tt.wantNextCalled {
				var problem map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
				assert.NotEmpty(t, problem["title"])
				assert.EqualValues(t, tt.wantStatusCode, problem["status"])
			}
		})
	}
}
