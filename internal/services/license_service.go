package services

import (
	"context"
	"log/slog"
	"time"

	"themekeys/internal/infrastructure"
	"themekeys/internal/license"
)

// adminListLimit caps the rows returned by the admin listing endpoints.
const adminListLimit = 50

// LicenseService provides the business operations exposed over HTTP:
// storefront activation plus the admin surface for key generation and
// inspection.
type LicenseService interface {
	Activate(ctx context.Context, req license.ActivationRequest) (*license.Activation, error)
	Generate(ctx context.Context, count int) ([]license.License, error)
	ListLicenses(ctx context.Context) ([]license.License, error)
	ListActiveActivations(ctx context.Context) ([]license.Activation, error)
}

type licenseService struct {
	engine *license.Engine
	store  license.RegistryStore
	logger *slog.Logger
}

// NewLicenseService creates the service layer over the activation engine.
func NewLicenseService(engine *license.Engine, store license.RegistryStore, logger *slog.Logger) LicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &licenseService{
		engine: engine,
		store:  store,
		logger: logger.With(slog.String("service", "license")),
	}
}

// Activate runs one activation attempt through the engine and logs the
// outcome. Business rejections (bad key, conflict) come back as typed errors
// for the transport layer to shape; they are expected traffic, so they log at
// Info, not Error.
func (s *licenseService) Activate(ctx context.Context, req license.ActivationRequest) (*license.Activation, error) {
	start := time.Now()
	traceID := infrastructure.TraceIDFromContext(ctx)

	s.logger.InfoContext(ctx, "activation attempt started",
		slog.String("trace_id", traceID),
		slog.String("operation", "activate"),
		slog.String("license_key", license.MaskKey(req.LicenseKey)),
		slog.String("domain", req.Domain),
	)

	activation, err := s.engine.Activate(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		if domain, ok := license.IsConflict(err); ok {
			s.logger.InfoContext(ctx, "activation rejected: key bound elsewhere",
				slog.String("trace_id", traceID),
				slog.String("license_key", license.MaskKey(req.LicenseKey)),
				slog.String("requested_domain", req.Domain),
				slog.String("bound_domain", domain),
				slog.Duration("duration", elapsed),
			)
			return nil, err
		}
		s.logger.InfoContext(ctx, "activation rejected",
			slog.String("trace_id", traceID),
			slog.String("license_key", license.MaskKey(req.LicenseKey)),
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed),
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "activation succeeded",
		slog.String("trace_id", traceID),
		slog.String("license_key", license.MaskKey(activation.LicenseKey)),
		slog.String("domain", activation.Domain),
		slog.Time("activated_at", activation.ActivatedAt),
		slog.Duration("duration", elapsed),
	)
	return activation, nil
}

// Generate mints count fresh license keys.
func (s *licenseService) Generate(ctx context.Context, count int) ([]license.License, error) {
	traceID := infrastructure.TraceIDFromContext(ctx)

	s.logger.InfoContext(ctx, "key generation requested",
		slog.String("trace_id", traceID),
		slog.String("operation", "generate"),
		slog.Int("count", count),
	)

	batch, err := s.engine.Generate(ctx, count)
	if err != nil {
		s.logger.ErrorContext(ctx, "key generation failed",
			slog.String("trace_id", traceID),
			slog.Int("count", count),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.InfoContext(ctx, "key generation completed",
		slog.String("trace_id", traceID),
		slog.Int("generated", len(batch)),
	)
	return batch, nil
}

// ListLicenses returns the most recently created licenses for the admin view.
func (s *licenseService) ListLicenses(ctx context.Context) ([]license.License, error) {
	licenses, err := s.store.ListLicenses(ctx, adminListLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing licenses failed",
			slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return licenses, nil
}

// ListActiveActivations returns the currently live domain bindings.
func (s *licenseService) ListActiveActivations(ctx context.Context) ([]license.Activation, error) {
	activations, err := s.store.ListActiveActivations(ctx, adminListLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "listing activations failed",
			slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return activations, nil
}
