package registry_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themekeys/internal/license"
	"themekeys/internal/registry"
)

// Integration tests against a real Postgres. Opt in with:
//
//	TEST_DATABASE_URL="host=localhost user=... dbname=..." go test ./internal/registry/
func newPostgresStore(t *testing.T) *registry.PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres integration tests")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := registry.Connect(ctx, dsn, 5, 2, time.Hour, logger)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStoreBindRoundTrip(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	key := uniqueTestKey(t)
	require.NoError(t, store.InsertLicenses(ctx, []license.License{
		{LicenseKey: key, CreatedAt: time.Now().UTC()},
	}))

	act, err := store.BindDomain(ctx, license.BindParams{
		LicenseKey: key,
		Domain:     "integration.myshopify.com",
		ThemeID:    "theme-9",
		Now:        time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, act.IsActive)
	assert.Equal(t, "theme-9", act.ThemeID)

	_, err = store.BindDomain(ctx, license.BindParams{
		LicenseKey: key,
		Domain:     "elsewhere.myshopify.com",
		Now:        time.Now().UTC(),
	})
	domain, ok := license.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, "integration.myshopify.com", domain)
}

func TestPostgresStoreDuplicateInsert(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	key := uniqueTestKey(t)
	batch := []license.License{{LicenseKey: key, CreatedAt: time.Now().UTC()}}
	require.NoError(t, store.InsertLicenses(ctx, batch))

	err := store.InsertLicenses(ctx, batch)
	assert.ErrorIs(t, err, license.ErrDuplicateKey)
}

func TestPostgresStorePing(t *testing.T) {
	store := newPostgresStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func uniqueTestKey(t *testing.T) string {
	t.Helper()
	key, err := license.GenerateKey(license.DefaultKeyPrefix)
	require.NoError(t, err)
	return key
}
