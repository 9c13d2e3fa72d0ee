package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Default engine bounds. MaxGenerate caps a single bulk-generation batch;
// the HTTP layer also validates the same bound before the engine sees it.
const (
	DefaultKeyPrefix    = "TL"
	DefaultDomainSuffix = ".myshopify.com"
	DefaultMaxGenerate  = 100

	// insertRetries bounds key-collision retries during bulk generation.
	insertRetries = 3
)

// EngineConfig parameterizes the activation engine. DomainSuffix exists
// because accepted domains are platform-specific; deployments targeting a
// different storefront platform override it rather than patching the check.
type EngineConfig struct {
	KeyPrefix    string
	DomainSuffix string
	MaxGenerate  int
}

// Engine is the activation decision core. It is stateless between requests;
// all shared mutable state lives behind the RegistryStore.
type Engine struct {
	store   RegistryStore
	logger  *slog.Logger
	metrics *Metrics
	cfg     EngineConfig
	now     func() time.Time
}

// NewEngine creates an activation engine. metrics may be nil when telemetry
// is disabled (tests).
func NewEngine(store RegistryStore, logger *slog.Logger, metrics *Metrics, cfg EngineConfig) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.DomainSuffix == "" {
		cfg.DomainSuffix = DefaultDomainSuffix
	}
	if cfg.MaxGenerate <= 0 {
		cfg.MaxGenerate = DefaultMaxGenerate
	}
	return &Engine{
		store:   store,
		logger:  logger.With(slog.String("component", "activation_engine")),
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Activate runs the activation state machine for one request. Checks are
// applied in order with first failure winning:
//
//  1. both licenseKey and domain present
//  2. domain carries the configured storefront suffix
//  3. key is syntactically valid and exists in the registry
//  4. key is not actively bound to a different domain
//
// A passing request binds (or idempotently rebinds) the key to the domain.
// The two-row effect is applied atomically by the store; the conflict check
// is re-evaluated inside that critical section, so concurrent requests for
// the same key cannot double-bind.
func (e *Engine) Activate(ctx context.Context, req ActivationRequest) (*Activation, error) {
	start := e.now()
	key := strings.TrimSpace(req.LicenseKey)
	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	themeID := strings.TrimSpace(req.ThemeID)

	e.recordAttempt(ctx)

	if key == "" || domain == "" {
		e.recordFailure(ctx, "missing_fields")
		return nil, ErrMissingFields
	}

	if !strings.HasSuffix(domain, e.cfg.DomainSuffix) {
		e.logger.InfoContext(ctx, "activation rejected: bad domain suffix",
			slog.String("domain", domain),
			slog.String("required_suffix", e.cfg.DomainSuffix),
		)
		e.recordFailure(ctx, "invalid_domain")
		return nil, fmt.Errorf("%w: domain must end with %s", ErrInvalidDomainFormat, e.cfg.DomainSuffix)
	}

	if err := ValidateKeyFormat(key, e.cfg.KeyPrefix); err != nil {
		e.logger.InfoContext(ctx, "activation rejected: malformed key",
			slog.String("license_key", MaskKey(key)),
		)
		e.recordFailure(ctx, "invalid_key_format")
		return nil, err
	}

	if _, err := e.store.FindLicenseByKey(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			e.logger.InfoContext(ctx, "activation rejected: unknown key",
				slog.String("license_key", MaskKey(key)),
			)
			e.recordFailure(ctx, "unknown_key")
			return nil, ErrKeyNotFound
		}
		e.recordFailure(ctx, "store_error")
		return nil, fmt.Errorf("find license: %w", err)
	}

	// Fast-path conflict check. Purely advisory: the authoritative check runs
	// inside BindDomain's critical section.
	if current, err := e.store.FindActiveActivation(ctx, key); err == nil && current.Domain != domain {
		e.logger.InfoContext(ctx, "activation rejected: bound elsewhere",
			slog.String("license_key", MaskKey(key)),
			slog.String("requested_domain", domain),
			slog.String("current_domain", current.Domain),
		)
		e.recordFailure(ctx, "conflict")
		return nil, &ConflictError{CurrentDomain: current.Domain}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		e.recordFailure(ctx, "store_error")
		return nil, fmt.Errorf("find active activation: %w", err)
	}

	activation, err := e.store.BindDomain(ctx, BindParams{
		LicenseKey: key,
		Domain:     domain,
		ThemeID:    themeID,
		Now:        e.now().UTC(),
	})
	if err != nil {
		if domain, ok := IsConflict(err); ok {
			// Lost the race to a concurrent activation.
			e.logger.InfoContext(ctx, "activation rejected: bound concurrently",
				slog.String("license_key", MaskKey(key)),
				slog.String("current_domain", domain),
			)
			e.recordFailure(ctx, "conflict")
			return nil, err
		}
		if errors.Is(err, ErrNotFound) {
			e.recordFailure(ctx, "unknown_key")
			return nil, ErrKeyNotFound
		}
		e.recordFailure(ctx, "store_error")
		return nil, fmt.Errorf("bind domain: %w", err)
	}

	e.logger.InfoContext(ctx, "license activated",
		slog.String("license_key", MaskKey(key)),
		slog.String("domain", domain),
		slog.Bool("has_theme", themeID != ""),
		slog.Duration("latency", time.Since(start)),
	)
	e.recordSuccess(ctx, time.Since(start))
	return activation, nil
}

// Generate creates count fresh licenses with unique keys, all inactive.
// count must be within [1, MaxGenerate]. Key collisions are survived by
// regenerating the batch and retrying the insert.
func (e *Engine) Generate(ctx context.Context, count int) ([]License, error) {
	if count < 1 || count > e.cfg.MaxGenerate {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrCountOutOfRange, e.cfg.MaxGenerate)
	}

	var lastErr error
	for attempt := 0; attempt < insertRetries; attempt++ {
		batch, err := e.buildBatch(count)
		if err != nil {
			return nil, err
		}
		if err := e.store.InsertLicenses(ctx, batch); err != nil {
			if errors.Is(err, ErrDuplicateKey) {
				lastErr = err
				e.logger.WarnContext(ctx, "key collision during bulk generation, retrying",
					slog.Int("attempt", attempt+1),
					slog.Int("count", count),
				)
				continue
			}
			return nil, fmt.Errorf("insert licenses: %w", err)
		}
		e.logger.InfoContext(ctx, "licenses generated",
			slog.Int("count", count),
			slog.Int("attempts", attempt+1),
		)
		if e.metrics != nil {
			e.metrics.GenerationBatches.Add(ctx, 1)
			e.metrics.GeneratedKeys.Add(ctx, int64(count))
		}
		return batch, nil
	}
	return nil, fmt.Errorf("generate licenses: retries exhausted: %w", lastErr)
}

func (e *Engine) buildBatch(count int) ([]License, error) {
	now := e.now().UTC()
	batch := make([]License, 0, count)
	seen := make(map[string]struct{}, count)
	for len(batch) < count {
		key, err := GenerateKey(e.cfg.KeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		batch = append(batch, License{
			LicenseKey: key,
			IsActive:   false,
			CreatedAt:  now,
		})
	}
	return batch, nil
}

func (e *Engine) recordAttempt(ctx context.Context) {
	if e.metrics != nil {
		e.metrics.ActivationAttempts.Add(ctx, 1)
	}
}

func (e *Engine) recordSuccess(ctx context.Context, elapsed time.Duration) {
	if e.metrics != nil {
		e.metrics.ActivationSuccess.Add(ctx, 1)
		e.metrics.ActivationDuration.Record(ctx, elapsed.Seconds())
	}
}

func (e *Engine) recordFailure(ctx context.Context, reason string) {
	if e.metrics != nil {
		e.metrics.ActivationFailures.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// MaskKey redacts the middle of a license key for log output, keeping enough
// of both ends to correlate with the registry.
func MaskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:5] + "..." + key[len(key)-4:]
}
