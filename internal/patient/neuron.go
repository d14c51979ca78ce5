// Package patient keeps patient profiles in step with registrations.
package patient

import (
	"context"
	"errors"
	"fmt"

	"sante/internal/eventbus"
	"sante/internal/events"
	"sante/internal/neuron"
	"sante/internal/rbac"
	"sante/pkg/platform/sentinel"

	dErrors "sante/pkg/domain-errors"
)

const NeuronName = "patient"

type Neuron struct {
	*neuron.Base
	profiles Repository
}

func NewNeuron(profiles Repository, bus *eventbus.Bus, opts ...neuron.Option) *Neuron {
	n := &Neuron{
		Base:     neuron.NewBase(NeuronName, bus, opts...),
		profiles: profiles,
	}
	n.On(events.AuthUserRegistered, n.onUserRegistered)
	n.On(events.PatientProfileUpdateRequested, n.onProfileUpdateRequested)
	return n
}

// Profile returns the stored profile of a patient.
func (n *Neuron) Profile(ctx context.Context, userID string) (*Profile, error) {
	p, err := n.profiles.FindByUserID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "patient not found")
	}
	return p, err
}

// onUserRegistered ignores non-patient roles and replays of an already
// created profile.
func (n *Neuron) onUserRegistered(ctx context.Context, evt eventbus.Event) error {
	if rbac.Role(evt.String("role")) != rbac.RolePatient {
		return nil
	}
	now := n.Now()
	p := &Profile{
		UserID:     evt.String("user_id"),
		Identifier: evt.String("identifier"),
		FirstName:  evt.String("first_name"),
		LastName:   evt.String("last_name"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p.UserID == "" {
		return fmt.Errorf("%s without user_id", evt.Type)
	}
	switch evt.String("identifier_kind") {
	case "email":
		p.Email = p.Identifier
	case "phone":
		p.Phone = p.Identifier
	}

	if err := n.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			n.Logger().InfoContext(ctx, "patient profile already exists", "user_id", p.UserID)
			return nil
		}
		return fmt.Errorf("create patient profile: %w", err)
	}

	_, err := n.Emit(ctx, events.PatientProfileCreated, map[string]any{
		"user_id":    p.UserID,
		"identifier": p.Identifier,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
	})
	return err
}

func (n *Neuron) onProfileUpdateRequested(ctx context.Context, evt eventbus.Event) error {
	userID := evt.String("user_id")
	update := ContactUpdate{
		Email:        optionalString(evt, "email"),
		Phone:        optionalString(evt, "phone"),
		Address:      optionalString(evt, "address"),
		CNAMGSNumber: optionalString(evt, "cnamgs_number"),
		CNSSNumber:   optionalString(evt, "cnss_number"),
	}
	if err := update.Validate(); err != nil {
		return err
	}

	p, err := n.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load patient %q: %w", userID, err)
	}
	changed := p.Apply(update, n.Now())
	if len(changed) == 0 {
		return nil
	}
	if err := n.profiles.Update(ctx, p); err != nil {
		return fmt.Errorf("update patient %q: %w", userID, err)
	}

	_, err = n.Emit(ctx, events.PatientProfileUpdated, map[string]any{
		"user_id": userID,
		"fields":  changed,
	})
	return err
}

func optionalString(evt eventbus.Event, key string) *string {
	v, ok := evt.Data[key].(string)
	if !ok {
		return nil
	}
	return &v
}
