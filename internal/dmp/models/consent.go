package models

import (
	"time"

	"github.com/google/uuid"
)

// Consent lets one professional read one patient's DMP. Records are never
// deleted; revocation only sets RevokedAt.
type Consent struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      string     `json:"patient_id"`
	ProfessionalID string     `json:"professional_id"`
	GrantedAt      time.Time  `json:"granted_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

func (c *Consent) IsRevoked() bool {
	return c.RevokedAt != nil
}

// IsExpired reports whether the consent has an expiry that is not after now.
func (c *Consent) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// IsActive returns true when the consent is neither revoked nor expired.
func (c *Consent) IsActive(now time.Time) bool {
	return !c.IsRevoked() && !c.IsExpired(now)
}

// MostRecent returns the consent with the latest GrantedAt, or nil. consents
// must be in insertion order; on equal GrantedAt the later one wins.
func MostRecent(consents []*Consent) *Consent {
	var latest *Consent
	for _, c := range consents {
		if latest == nil || !c.GrantedAt.Before(latest.GrantedAt) {
			latest = c
		}
	}
	return latest
}
