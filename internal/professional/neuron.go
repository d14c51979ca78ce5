// Package professional tracks professional profiles and their verification.
package professional

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

const NeuronName = "professional"

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
	n.On(events.ProfessionalVerificationRequested, n.onVerificationRequested)
	return n
}

func (n *Neuron) Profile(ctx context.Context, userID string) (*Profile, error) {
	p, err := n.profiles.FindByUserID(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "professional not found")
	}
	return p, err
}

func (n *Neuron) onUserRegistered(ctx context.Context, evt eventbus.Event) error {
	role := rbac.Role(evt.String("role"))
	if !rbac.IsProfessional(role) {
		return nil
	}
	category, _ := rbac.RoleCategory(role)
	now := n.Now()
	p := &Profile{
		UserID:     evt.String("user_id"),
		Identifier: evt.String("identifier"),
		Role:       role,
		Category:   category,
		FirstName:  evt.String("first_name"),
		LastName:   evt.String("last_name"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p.UserID == "" {
		return fmt.Errorf("%s without user_id", evt.Type)
	}
	if err := n.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return fmt.Errorf("create professional profile: %w", err)
	}

	_, err := n.Emit(ctx, events.ProfessionalProfileCreated, map[string]any{
		"user_id":  p.UserID,
		"role":     string(p.Role),
		"category": string(p.Category),
	})
	return err
}

func (n *Neuron) onVerificationRequested(ctx context.Context, evt eventbus.Event) error {
	userID := evt.String("user_id")
	p, err := n.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load professional %q: %w", userID, err)
	}
	if err := p.CanVerify(); err != nil {
		n.Logger().InfoContext(ctx, "verification ignored", "user_id", userID, "reason", err.Error())
		return nil
	}
	p.ApplyVerification(evt.String("verified_by"), evt.String("license_number"), n.Now())
	if err := n.profiles.Update(ctx, p); err != nil {
		return fmt.Errorf("update professional %q: %w", userID, err)
	}

	_, err = n.Emit(ctx, events.ProfessionalVerified, map[string]any{
		"user_id":        p.UserID,
		"identifier":     p.Identifier,
		"role":           string(p.Role),
		"license_number": p.LicenseNumber,
		"verified_by":    p.VerifiedBy,
	})
	return err
}
