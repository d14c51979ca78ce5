package appointment

import (
	"time"

	"github.com/google/uuid"

	dErrors "sante/pkg/domain-errors"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

// Rejection reasons carried by appointment.rejected.
const (
	ReasonUnknownPatient         = "unknown_patient"
	ReasonUnverifiedProfessional = "unverified_professional"
	ReasonInvalidTime            = "invalid_time"
	ReasonSlotUnavailable        = "slot_unavailable"
)

type Appointment struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      string     `json:"patient_id"`
	ProfessionalID string     `json:"professional_id"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	Reason         string     `json:"reason,omitempty"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy    string     `json:"cancelled_by,omitempty"`
	CancelReason   string     `json:"cancel_reason,omitempty"`
}

// Overlaps reports whether a slot of the given length starting at t collides
// with this appointment's slot. Cancelled appointments free their slot.
func (a *Appointment) Overlaps(t time.Time, slot time.Duration) bool {
	if a.Status != StatusScheduled {
		return false
	}
	return t.Before(a.ScheduledAt.Add(slot)) && a.ScheduledAt.Before(t.Add(slot))
}

func (a *Appointment) IsParticipant(userID string) bool {
	return userID != "" && (userID == a.PatientID || userID == a.ProfessionalID)
}

// CanCancel checks the scheduled -> cancelled transition.
func (a *Appointment) CanCancel() error {
	if a.Status != StatusScheduled {
		return dErrors.New(dErrors.CodeInvariantViolation, "appointment is not scheduled")
	}
	return nil
}

// ApplyCancellation cancels the appointment. Call CanCancel first.
func (a *Appointment) ApplyCancellation(by, reason string, now time.Time) {
	a.Status = StatusCancelled
	a.CancelledAt = &now
	a.CancelledBy = by
	a.CancelReason = reason
}
