package license

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyFormat(t *testing.T) {
	key, err := GenerateKey(DefaultKeyPrefix)
	require.NoError(t, err)

	assert.NoError(t, ValidateKeyFormat(key, DefaultKeyPrefix))

	parts := strings.Split(key, "-")
	require.Len(t, parts, KeyBlocks+1)
	assert.Equal(t, DefaultKeyPrefix, parts[0])
	for _, block := range parts[1:] {
		assert.Len(t, block, KeyBlockLength)
		for _, c := range block {
			assert.Contains(t, keyAlphabet, string(c))
		}
	}
}

func TestGenerateKeyUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		key, err := GenerateKey(DefaultKeyPrefix)
		require.NoError(t, err)
		_, dup := seen[key]
		require.False(t, dup, "duplicate key %s after %d generations", key, i)
		seen[key] = struct{}{}
	}
}

func TestValidateKeyFormat(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid", key: "TL-ABCDEFGH-12345678"},
		{name: "lowercase block", key: "TL-abcdefgh-12345678", wantErr: true},
		{name: "wrong prefix", key: "XX-ABCDEFGH-12345678", wantErr: true},
		{name: "short block", key: "TL-ABCDEFG-12345678", wantErr: true},
		{name: "missing block", key: "TL-ABCDEFGH", wantErr: true},
		{name: "extra block", key: "TL-ABCDEFGH-12345678-ABCDEFGH", wantErr: true},
		{name: "illegal character", key: "TL-ABCDEFG!-12345678", wantErr: true},
		{name: "empty", key: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyFormat(tt.key, DefaultKeyPrefix)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKeyFormat)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "TL-AB...5678", MaskKey("TL-ABCDEFGH-12345678"))
	assert.Equal(t, "***", MaskKey("short"))
}
