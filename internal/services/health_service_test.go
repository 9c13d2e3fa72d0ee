package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"themekeys/internal/registry"
)

func TestHealthServiceCheckHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewHealthService("v1.2.0-test", registry.NewMemoryStore(), logger)

	status := svc.CheckHealth(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "v1.2.0-test", status.Version)
	assert.Equal(t, "ok", status.Checks["registry"])
	assert.True(t, svc.Ready(context.Background()))
}

func TestHealthServiceVersion(t *testing.T) {
	svc := NewHealthService("v1.2.0-test", registry.NewMemoryStore(), nil)

	info := svc.Version()
	assert.Equal(t, "v1.2.0-test", info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.NotEmpty(t, info.OS)
}
