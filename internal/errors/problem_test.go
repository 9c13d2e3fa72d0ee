package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemDetailsMarshalJSON(t *testing.T) {
	problem := NewProblemDetails(
		http.StatusForbidden,
		"/errors/forbidden",
		"Access Denied",
		"The presented admin token is not valid.",
		"/api/admin/licenses",
	).WithExtension("trace_id", "abc-123")

	raw, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "/errors/forbidden", decoded["type"])
	assert.Equal(t, "Access Denied", decoded["title"])
	assert.EqualValues(t, http.StatusForbidden, decoded["status"])
	assert.Equal(t, "abc-123", decoded["trace_id"])
	assert.Equal(t, "/api/admin/licenses", decoded["instance"])
}

func TestProblemDetailsOmitsEmptyFields(t *testing.T) {
	problem := NewProblemDetails(http.StatusUnauthorized, "/errors/unauthorized", "Authentication Required", "", "")

	raw, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded, "detail")
	assert.NotContains(t, decoded, "instance")
}
