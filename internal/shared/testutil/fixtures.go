// Package testutil provides shared fixtures for license tests: canonical
// keys and domains, store seeding, and a log-capture slog handler.
package testutil

import (
	"context"
	"testing"
	"time"

	"themekeys/internal/license"
)

// Canonical fixture values. The keys are syntactically valid but never
// issued outside tests.
const (
	ValidKey      = "TL-AAAAAAAA-BBBBBBBB"
	SecondKey     = "TL-CCCCCCCC-DDDDDDDD"
	UnknownKey    = "TL-ZZZZZZZZ-99999999"
	ValidDomain   = "fixture-shop.myshopify.com"
	SecondDomain  = "other-shop.myshopify.com"
	InvalidDomain = "fixture-shop.example.com"
)

// SeedLicenses inserts unactivated licenses for the given keys, with
// CreatedAt staggered so newest-first ordering is deterministic.
func SeedLicenses(t *testing.T, store license.RegistryStore, keys ...string) {
	t.Helper()
	now := time.Now().UTC()
	batch := make([]license.License, 0, len(keys))
	for i, key := range keys {
		batch = append(batch, license.License{
			LicenseKey: key,
			CreatedAt:  now.Add(time.Duration(i) * time.Millisecond),
		})
	}
	if err := store.InsertLicenses(context.Background(), batch); err != nil {
		t.Fatalf("seed licenses: %v", err)
	}
}

// SeedActivation binds key to domain, failing the test on any error.
func SeedActivation(t *testing.T, store license.RegistryStore, key, domain string) *license.Activation {
	t.Helper()
	act, err := store.BindDomain(context.Background(), license.BindParams{
		LicenseKey: key,
		Domain:     domain,
		Now:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed activation for %s on %s: %v", key, domain, err)
	}
	return act
}
