package license

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Key format constants. A key looks like TL-7K2M9QWX-4RT8BZN1: a short
// product prefix and two blocks drawn from an unambiguous uppercase
// alphanumeric alphabet.
const (
	KeyBlockLength = 8
	KeyBlocks      = 2
	keyAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateKey produces a random license key with the given prefix, e.g.
// "TL" -> "TL-XXXXXXXX-XXXXXXXX". The keyspace (36^16) is large enough that
// collisions are handled by insert-time retry rather than pre-checking.
func GenerateKey(prefix string) (string, error) {
	raw := make([]byte, KeyBlockLength*KeyBlocks)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	var b strings.Builder
	b.WriteString(prefix)
	for i, c := range raw {
		if i%KeyBlockLength == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(keyAlphabet[int(c)%len(keyAlphabet)])
	}
	return b.String(), nil
}

// ValidateKeyFormat checks the syntactic shape of a license key:
// PREFIX-XXXXXXXX-XXXXXXXX with X in [A-Z0-9]. It says nothing about whether
// the key was ever issued.
func ValidateKeyFormat(key, prefix string) error {
	parts := strings.Split(key, "-")
	if len(parts) != KeyBlocks+1 || parts[0] != prefix {
		return ErrInvalidKeyFormat
	}
	for _, block := range parts[1:] {
		if len(block) != KeyBlockLength {
			return ErrInvalidKeyFormat
		}
		for i := 0; i < len(block); i++ {
			if !strings.ContainsRune(keyAlphabet, rune(block[i])) {
				return ErrInvalidKeyFormat
			}
		}
	}
	return nil
}
