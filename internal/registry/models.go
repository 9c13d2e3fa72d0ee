package registry

import (
	"time"

	"themekeys/internal/license"
)

// licenseModel maps the licenses table. Domain and ActivatedAt are nullable:
// both are absent until the key's first activation.
type licenseModel struct {
	ID          uint    `gorm:"primaryKey"`
	LicenseKey  string  `gorm:"size:32;uniqueIndex;not null"`
	Domain      *string `gorm:"size:255"`
	IsActive    bool    `gorm:"not null;default:false"`
	CreatedAt   time.Time
	ActivatedAt *time.Time
}

func (licenseModel) TableName() string { return "licenses" }

// activationModel maps the activations table. (license_key, domain) is the
// natural key; rebinding the same pair updates the row in place. The
// at-most-one-active-per-key invariant is additionally enforced by a partial
// unique index created in Migrate.
type activationModel struct {
	ID          uint    `gorm:"primaryKey"`
	LicenseKey  string  `gorm:"size:32;not null;uniqueIndex:idx_activations_key_domain,priority:1"`
	Domain      string  `gorm:"size:255;not null;uniqueIndex:idx_activations_key_domain,priority:2"`
	ThemeID     *string `gorm:"size:64"`
	IsActive    bool    `gorm:"not null;default:false"`
	ActivatedAt time.Time
}

func (activationModel) TableName() string { return "activations" }

func toDomainLicense(rec licenseModel) license.License {
	out := license.License{
		LicenseKey:  rec.LicenseKey,
		IsActive:    rec.IsActive,
		CreatedAt:   rec.CreatedAt,
		ActivatedAt: rec.ActivatedAt,
	}
	if rec.Domain != nil {
		out.Domain = *rec.Domain
	}
	return out
}

func toDomainActivation(rec activationModel) license.Activation {
	out := license.Activation{
		LicenseKey:  rec.LicenseKey,
		Domain:      rec.Domain,
		IsActive:    rec.IsActive,
		ActivatedAt: rec.ActivatedAt,
	}
	if rec.ThemeID != nil {
		out.ThemeID = *rec.ThemeID
	}
	return out
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
