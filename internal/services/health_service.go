package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"themekeys/internal/license"
)

// HealthStatus is the payload returned by the health endpoints.
type HealthStatus struct {
	Status    string            `json:"status"` // healthy|degraded
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// HealthService reports liveness and readiness of the process and its store.
type HealthService struct {
	version   string
	store     license.RegistryStore
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthService creates a health service backed by the given store.
func NewHealthService(version string, store license.RegistryStore, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		store:     store,
		logger:    logger.With(slog.String("service", "health")),
		startTime: time.Now(),
	}
}

// CheckHealth probes the registry store and reports the overall state. The
// process stays "degraded" rather than failing outright when the store is
// unreachable, so a flapping database does not take liveness down with it.
func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	checks := make(map[string]string)
	status := "healthy"

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := s.store.Ping(probeCtx); err != nil {
		s.logger.WarnContext(ctx, "registry store ping failed",
			slog.String("error", err.Error()),
		)
		checks["registry"] = "unreachable: " + err.Error()
		status = "degraded"
	} else {
		checks["registry"] = "ok"
	}

	return &HealthStatus{
		Status:    status,
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}
}

// Ready reports whether the service can take traffic.
func (s *HealthService) Ready(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.store.Ping(probeCtx) == nil
}

// Version returns static build information.
func (s *HealthService) Version() *VersionInfo {
	return &VersionInfo{
		Version:   s.version,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
