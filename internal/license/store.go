package license

import (
	"context"
	"time"
)

// BindParams carries the fields of an atomic bind operation. Now is injected
// by the engine so clock behavior stays testable.
type BindParams struct {
	LicenseKey string
	Domain     string
	ThemeID    string
	Now        time.Time
}

// RegistryStore is the durable record of licenses and activations. The
// interface itself promises no cross-call transactionality; the one atomicity
// requirement of the activation flow is concentrated in BindDomain.
type RegistryStore interface {
	// FindLicenseByKey returns the license row for key, or ErrNotFound.
	FindLicenseByKey(ctx context.Context, key string) (*License, error)

	// FindActiveActivation returns the currently live binding for key.
	// ErrNotFound when the key has no active binding, ErrIntegrity when more
	// than one active row exists.
	FindActiveActivation(ctx context.Context, key string) (*Activation, error)

	// BindDomain performs the conditional bind as a single atomic unit,
	// serialized per license key: it succeeds only when no active binding
	// exists for the key or the active binding already names params.Domain.
	// On success the activation row for (key, domain) is upserted with
	// IsActive=true and a refreshed ActivatedAt, and the license row is
	// updated in the same unit. A live binding to a different domain yields
	// *ConflictError; an unknown key yields ErrNotFound.
	BindDomain(ctx context.Context, params BindParams) (*Activation, error)

	// InsertLicenses inserts a generated batch. ErrDuplicateKey when any key
	// collides with an existing one; no rows are kept on failure.
	InsertLicenses(ctx context.Context, batch []License) error

	// ListLicenses returns up to limit licenses, newest first.
	ListLicenses(ctx context.Context, limit int) ([]License, error)

	// ListActiveActivations returns up to limit live bindings, newest first.
	ListActiveActivations(ctx context.Context, limit int) ([]Activation, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
