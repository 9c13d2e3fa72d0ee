package license

import "time"

// License represents an issued license key and its current binding state.
// Domain and ActivatedAt are denormalized from the most recent successful
// activation and are absent until the key has been activated at least once.
type License struct {
	LicenseKey  string     `json:"licenseKey"`
	Domain      string     `json:"domain,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
}

// Activation is the audit record for a (licenseKey, domain) pair. One row per
// pair; repeated activations for the same pair update the row in place.
// IsActive marks the currently live binding, of which there is at most one
// per license key.
type Activation struct {
	LicenseKey  string    `json:"licenseKey"`
	Domain      string    `json:"domain"`
	ThemeID     string    `json:"themeId,omitempty"`
	IsActive    bool      `json:"isActive"`
	ActivatedAt time.Time `json:"activatedAt"`
}

// ActivationRequest carries the caller-supplied fields of an activation
// attempt. ThemeID is optional; when empty an existing theme binding is left
// untouched.
type ActivationRequest struct {
	LicenseKey string
	Domain     string
	ThemeID    string
}
