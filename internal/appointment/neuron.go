// Package appointment schedules consultations between known patients and
// verified professionals.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sante/internal/eventbus"
	"sante/internal/events"
	"sante/internal/neuron"
	"sante/pkg/platform/sentinel"

	dErrors "sante/pkg/domain-errors"
)

const (
	NeuronName  = "appointment"
	DefaultSlot = 30 * time.Minute
)

type Neuron struct {
	*neuron.Base
	appointments Repository
	slot         time.Duration

	mu            sync.RWMutex
	patients      map[string]string // user id -> identifier
	professionals map[string]string
}

// NewNeuron builds the appointment neuron. A non-positive slot uses DefaultSlot.
func NewNeuron(appointments Repository, bus *eventbus.Bus, slot time.Duration, opts ...neuron.Option) *Neuron {
	if slot <= 0 {
		slot = DefaultSlot
	}
	n := &Neuron{
		Base:          neuron.NewBase(NeuronName, bus, opts...),
		appointments:  appointments,
		slot:          slot,
		patients:      make(map[string]string),
		professionals: make(map[string]string),
	}
	n.On(events.PatientProfileCreated, n.onPatientCreated)
	n.On(events.ProfessionalVerified, n.onProfessionalVerified)
	n.On(events.AppointmentRequested, n.onRequested)
	n.On(events.AppointmentCancelRequested, n.onCancelRequested)
	return n
}

func (n *Neuron) Appointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := n.appointments.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "appointment not found")
	}
	return a, err
}

func (n *Neuron) Schedule(ctx context.Context, professionalID string) ([]*Appointment, error) {
	return n.appointments.ListByProfessional(ctx, professionalID)
}

func (n *Neuron) onPatientCreated(_ context.Context, evt eventbus.Event) error {
	if id := evt.String("user_id"); id != "" {
		n.mu.Lock()
		n.patients[id] = evt.String("identifier")
		n.mu.Unlock()
	}
	return nil
}

func (n *Neuron) onProfessionalVerified(_ context.Context, evt eventbus.Event) error {
	if id := evt.String("user_id"); id != "" {
		n.mu.Lock()
		n.professionals[id] = evt.String("identifier")
		n.mu.Unlock()
	}
	return nil
}

func (n *Neuron) lookup(patientID, professionalID string) (patient, professional string, reason string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	patient, ok := n.patients[patientID]
	if !ok {
		return "", "", ReasonUnknownPatient
	}
	professional, ok = n.professionals[professionalID]
	if !ok {
		return "", "", ReasonUnverifiedProfessional
	}
	return patient, professional, ""
}

func (n *Neuron) onRequested(ctx context.Context, evt eventbus.Event) error {
	patientID := strings.TrimSpace(evt.String("patient_id"))
	professionalID := strings.TrimSpace(evt.String("professional_id"))
	requestID := evt.String("request_id")

	reject := func(reason string) error {
		n.Logger().InfoContext(ctx, "appointment rejected",
			"patient_id", patientID,
			"professional_id", professionalID,
			"reason", reason,
		)
		_, err := n.Emit(ctx, events.AppointmentRejected, map[string]any{
			"request_id":      requestID,
			"patient_id":      patientID,
			"professional_id": professionalID,
			"scheduled_at":    evt.String("scheduled_at"),
			"reason":          reason,
		})
		return err
	}

	patientIdent, professionalIdent, reason := n.lookup(patientID, professionalID)
	if reason != "" {
		return reject(reason)
	}
	now := n.Now()
	at, err := scheduledAt(evt)
	if err != nil || !at.After(now) {
		return reject(ReasonInvalidTime)
	}

	existing, err := n.appointments.ListByProfessional(ctx, professionalID)
	if err != nil {
		return fmt.Errorf("list schedule for %q: %w", professionalID, err)
	}
	for _, other := range existing {
		if other.Overlaps(at, n.slot) {
			return reject(ReasonSlotUnavailable)
		}
	}

	a := &Appointment{
		ID:             uuid.New(),
		PatientID:      patientID,
		ProfessionalID: professionalID,
		ScheduledAt:    at,
		Reason:         evt.String("reason"),
		Status:         StatusScheduled,
		CreatedAt:      now,
	}
	if err := n.appointments.Create(ctx, a); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	_, err = n.Emit(ctx, events.AppointmentScheduled, map[string]any{
		"request_id":              requestID,
		"appointment_id":          a.ID.String(),
		"patient_id":              a.PatientID,
		"professional_id":         a.ProfessionalID,
		"scheduled_at":            a.ScheduledAt.Format(time.RFC3339),
		"patient_identifier":      patientIdent,
		"professional_identifier": professionalIdent,
	})
	return err
}

func (n *Neuron) onCancelRequested(ctx context.Context, evt eventbus.Event) error {
	id, err := uuid.Parse(evt.String("appointment_id"))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "appointment_id is invalid")
	}
	a, err := n.appointments.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load appointment %s: %w", id, err)
	}
	requestedBy := evt.String("requested_by")
	if !a.IsParticipant(requestedBy) {
		return dErrors.New(dErrors.CodeForbidden, "only participants can cancel an appointment")
	}
	if err := a.CanCancel(); err != nil {
		n.Logger().InfoContext(ctx, "cancellation ignored", "appointment_id", id.String(), "reason", err.Error())
		return nil
	}
	a.ApplyCancellation(requestedBy, evt.String("reason"), n.Now())
	if err := n.appointments.Update(ctx, a); err != nil {
		return fmt.Errorf("update appointment %s: %w", id, err)
	}

	n.mu.RLock()
	patientIdent, professionalIdent := n.patients[a.PatientID], n.professionals[a.ProfessionalID]
	n.mu.RUnlock()
	_, err = n.Emit(ctx, events.AppointmentCancelled, map[string]any{
		"appointment_id":          a.ID.String(),
		"patient_id":              a.PatientID,
		"professional_id":         a.ProfessionalID,
		"scheduled_at":            a.ScheduledAt.Format(time.RFC3339),
		"cancelled_by":            a.CancelledBy,
		"reason":                  a.CancelReason,
		"patient_identifier":      patientIdent,
		"professional_identifier": professionalIdent,
	})
	return err
}

// scheduledAt accepts either a time.Time or an RFC 3339 string.
func scheduledAt(evt eventbus.Event) (time.Time, error) {
	switch v := evt.Data["scheduled_at"].(type) {
	case time.Time:
		return v, nil
	case string:
		return time.Parse(time.RFC3339, v)
	default:
		return time.Time{}, fmt.Errorf("scheduled_at has type %T", v)
	}
}
