package patient

import (
	"time"

	"sante/pkg/email"

	dErrors "sante/pkg/domain-errors"
)

// Profile is the patient-facing record created when a patient account is
// registered. Insurance numbers are opaque.
type Profile struct {
	UserID       string    `json:"user_id"`
	Identifier   string    `json:"identifier"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	CNAMGSNumber string    `json:"cnamgs_number,omitempty"`
	CNSSNumber   string    `json:"cnss_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContactUpdate carries the fields a patient may change. Nil means unchanged.
type ContactUpdate struct {
	Email        *string
	Phone        *string
	Address      *string
	CNAMGSNumber *string
	CNSSNumber   *string
}

// Validate rejects a malformed email, judged in the normalised form Apply
// stores. Empty strings clear a field.
func (u ContactUpdate) Validate() error {
	if u.Email == nil {
		return nil
	}
	if e := email.Normalize(*u.Email); e != "" && !email.IsValid(e) {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	return nil
}

// Apply sets the non-nil fields and returns the names of those that changed.
func (p *Profile) Apply(u ContactUpdate, now time.Time) []string {
	var changed []string
	set := func(name string, dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, name)
		}
	}
	var normalizedEmail *string
	if u.Email != nil {
		e := email.Normalize(*u.Email)
		normalizedEmail = &e
	}
	set("email", &p.Email, normalizedEmail)
	set("phone", &p.Phone, u.Phone)
	set("address", &p.Address, u.Address)
	set("cnamgs_number", &p.CNAMGSNumber, u.CNAMGSNumber)
	set("cnss_number", &p.CNSSNumber, u.CNSSNumber)
	if len(changed) > 0 {
		p.UpdatedAt = now
	}
	return changed
}
