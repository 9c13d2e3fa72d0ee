package license

import (
	"errors"
	"fmt"
)

// Sentinel errors for the expected activation failure modes. Handlers map
// these to the structured JSON failure shape; none of them are system faults.
var (
	ErrMissingFields       = errors.New("missing required fields: licenseKey and domain")
	ErrInvalidDomainFormat = errors.New("invalid domain format")
	ErrInvalidKeyFormat    = errors.New("invalid license key")
	ErrKeyNotFound         = errors.New("invalid license key")

	// ErrCountOutOfRange is returned by Generate for a batch size outside the
	// configured bounds.
	ErrCountOutOfRange = errors.New("count out of range")
)

// Store-level errors surfaced through the RegistryStore interface.
var (
	// ErrNotFound reports a missing license or activation row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey reports a unique-constraint violation on insert.
	ErrDuplicateKey = errors.New("duplicate license key")
	// ErrIntegrity reports a violated data invariant, such as more than one
	// active activation for a single key. Always a system fault.
	ErrIntegrity = errors.New("registry integrity violation")
)

// ConflictError is returned when a key is actively bound to a different
// domain than the one requested. CurrentDomain names the live binding so the
// operator can diagnose which store holds the license.
type ConflictError struct {
	CurrentDomain string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("license already active on %s; no transfer path exists, contact support to release the current binding", e.CurrentDomain)
}

// IsConflict reports whether err is a binding conflict and returns the
// conflicting domain when it is.
func IsConflict(err error) (string, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.CurrentDomain, true
	}
	return "", false
}
