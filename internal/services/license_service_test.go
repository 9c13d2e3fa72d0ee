package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themekeys/internal/license"
	"themekeys/internal/registry"
	"themekeys/internal/shared/testutil"
)

func newTestService(t *testing.T) (LicenseService, license.RegistryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := registry.NewMemoryStore()
	engine := license.NewEngine(store, logger, nil, license.EngineConfig{})
	return NewLicenseService(engine, store, logger), store
}

func TestLicenseServiceActivate(t *testing.T) {
	svc, store := newTestService(t)
	testutil.SeedLicenses(t, store, testutil.ValidKey)

	tests := []struct {
		name    string
		req     license.ActivationRequest
		wantErr error
	}{
		{
			name: "success",
			req: license.ActivationRequest{
				LicenseKey: testutil.ValidKey,
				Domain:     testutil.ValidDomain,
			},
		},
		{
			name:    "missing fields",
			req:     license.ActivationRequest{LicenseKey: testutil.ValidKey},
			wantErr: license.ErrMissingFields,
		},
		{
			name: "unknown key",
			req: license.ActivationRequest{
				LicenseKey: testutil.UnknownKey,
				Domain:     testutil.ValidDomain,
			},
			wantErr: license.ErrKeyNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activation, err := svc.Activate(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, activation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.req.Domain, activation.Domain)
			assert.True(t, activation.IsActive)
		})
	}
}

func TestLicenseServiceActivateConflict(t *testing.T) {
	svc, store := newTestService(t)
	testutil.SeedLicenses(t, store, testutil.ValidKey)
	testutil.SeedActivation(t, store, testutil.ValidKey, testutil.ValidDomain)

	_, err := svc.Activate(context.Background(), license.ActivationRequest{
		LicenseKey: testutil.ValidKey,
		Domain:     testutil.SecondDomain,
	})
	boundDomain, ok := license.IsConflict(err)
	require.True(t, ok)
	assert.Equal(t, testutil.ValidDomain, boundDomain)
}

// Full keys must never reach the logs; only the masked form may appear.
func TestLicenseServiceActivateLogsMaskedKey(t *testing.T) {
	logger, captured := testutil.NewCaptureLogger()
	store := registry.NewMemoryStore()
	engine := license.NewEngine(store, logger, nil, license.EngineConfig{})
	svc := NewLicenseService(engine, store, logger)

	testutil.SeedLicenses(t, store, testutil.ValidKey)
	_, err := svc.Activate(context.Background(), license.ActivationRequest{
		LicenseKey: testutil.ValidKey,
		Domain:     testutil.ValidDomain,
	})
	require.NoError(t, err)

	require.True(t, captured.Contains("activation succeeded"))
	for _, record := range captured.Records() {
		if raw, ok := record.Attrs["license_key"]; ok {
			assert.Equal(t, license.MaskKey(testutil.ValidKey), raw)
			assert.NotEqual(t, testutil.ValidKey, raw)
		}
	}
}

func TestLicenseServiceGenerate(t *testing.T) {
	svc, _ := newTestService(t)

	batch, err := svc.Generate(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, batch, 5)
	for _, lic := range batch {
		assert.NoError(t, license.ValidateKeyFormat(lic.LicenseKey, license.DefaultKeyPrefix))
		assert.False(t, lic.IsActive)
	}
}

func TestLicenseServiceGenerateOutOfRange(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Generate(context.Background(), 0)
	assert.ErrorIs(t, err, license.ErrCountOutOfRange)

	_, err = svc.Generate(context.Background(), license.DefaultMaxGenerate+1)
	assert.ErrorIs(t, err, license.ErrCountOutOfRange)
}

func TestLicenseServiceListing(t *testing.T) {
	svc, store := newTestService(t)
	testutil.SeedLicenses(t, store, testutil.ValidKey, testutil.SecondKey)
	testutil.SeedActivation(t, store, testutil.ValidKey, testutil.ValidDomain)

	licenses, err := svc.ListLicenses(context.Background())
	require.NoError(t, err)
	assert.Len(t, licenses, 2)

	activations, err := svc.ListActiveActivations(context.Background())
	require.NoError(t, err)
	require.Len(t, activations, 1)
	assert.Equal(t, testutil.ValidDomain, activations[0].Domain)
}
