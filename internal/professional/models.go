package professional

import (
	"time"

	"sante/internal/rbac"

	dErrors "sante/pkg/domain-errors"
)

// Profile is a health professional's account record. It starts unverified;
// appointments can only be booked with verified professionals.
type Profile struct {
	UserID        string        `json:"user_id"`
	Identifier    string        `json:"identifier"`
	Role          rbac.Role     `json:"role"`
	Category      rbac.Category `json:"category"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	LicenseNumber string        `json:"license_number,omitempty"`
	Verified      bool          `json:"verified"`
	VerifiedAt    *time.Time    `json:"verified_at,omitempty"`
	VerifiedBy    string        `json:"verified_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CanVerify checks the unverified -> verified transition.
func (p *Profile) CanVerify() error {
	if p.Verified {
		return dErrors.New(dErrors.CodeInvariantViolation, "professional is already verified")
	}
	return nil
}

// ApplyVerification marks the profile verified. Call CanVerify first.
func (p *Profile) ApplyVerification(verifiedBy, licenseNumber string, now time.Time) {
	p.Verified = true
	p.VerifiedAt = &now
	p.VerifiedBy = verifiedBy
	if licenseNumber != "" {
		p.LicenseNumber = licenseNumber
	}
	p.UpdatedAt = now
}
