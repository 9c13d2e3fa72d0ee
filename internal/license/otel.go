package license

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const MeterName = "themekeys.license"

// Metrics holds the license-specific OpenTelemetry instruments. Exported via
// the Prometheus bridge mounted by the app.
type Metrics struct {
	ActivationAttempts metric.Int64Counter
	ActivationSuccess  metric.Int64Counter
	ActivationFailures metric.Int64Counter
	ActivationDuration metric.Float64Histogram

	GenerationBatches metric.Int64Counter
	GeneratedKeys     metric.Int64Counter
}

// InitMetrics creates the license instruments on the given meter.
func InitMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.ActivationAttempts, err = meter.Int64Counter(
		"license_activation_attempts_total",
		metric.WithDescription("Total number of license activation attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("create activation attempts counter: %w", err)
	}

	m.ActivationSuccess, err = meter.Int64Counter(
		"license_activation_success_total",
		metric.WithDescription("Total number of successful license activations"),
	)
	if err != nil {
		return nil, fmt.Errorf("create activation success counter: %w", err)
	}

	m.ActivationFailures, err = meter.Int64Counter(
		"license_activation_failures_total",
		metric.WithDescription("Total number of failed license activations, labeled by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("create activation failures counter: %w", err)
	}

	m.ActivationDuration, err = meter.Float64Histogram(
		"license_activation_duration_seconds",
		metric.WithDescription("License activation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create activation duration histogram: %w", err)
	}

	m.GenerationBatches, err = meter.Int64Counter(
		"license_generation_batches_total",
		metric.WithDescription("Total number of bulk generation batches"),
	)
	if err != nil {
		return nil, fmt.Errorf("create generation batches counter: %w", err)
	}

	m.GeneratedKeys, err = meter.Int64Counter(
		"license_generated_keys_total",
		metric.WithDescription("Total number of license keys generated"),
	)
	if err != nil {
		return nil, fmt.Errorf("create generated keys counter: %w", err)
	}

	return m, nil
}
