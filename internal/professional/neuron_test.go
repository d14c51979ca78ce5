package professional

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sante/internal/eventbus"
	"sante/internal/events"
	"sante/internal/neuron"
	"sante/internal/rbac"

	dErrors "sante/pkg/domain-errors"
)

type NeuronSuite struct {
	suite.Suite
	ctx    context.Context
	now    time.Time
	bus    *eventbus.Bus
	neuron *Neuron
}

func TestNeuronSuite(t *testing.T) {
	suite.Run(t, new(NeuronSuite))
}

func (s *NeuronSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.bus = eventbus.New(eventbus.WithLogger(logger))
	s.neuron = NewNeuron(NewInMemoryStore(), s.bus,
		neuron.WithLogger(logger),
		neuron.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(s.neuron.Activate(s.ctx))
}

func (s *NeuronSuite) publish(eventType string, data map[string]any) {
	_, err := s.bus.Publish(s.ctx, eventType, data, eventbus.Metadata{Source: "test"})
	s.Require().NoError(err)
}

func (s *NeuronSuite) TestCreatesUnverifiedProfileForProfessionalRoles() {
	s.publish(events.AuthUserRegistered, map[string]any{
		"user_id":    "d-1",
		"identifier": "dr.obiang@example.com",
		"role":       "radiologist",
	})
	s.publish(events.AuthUserRegistered, map[string]any{"user_id": "p-1", "role": "patient"})
	s.publish(events.AuthUserRegistered, map[string]any{"user_id": "a-1", "role": "admin"})

	p, err := s.neuron.Profile(s.ctx, "d-1")
	s.Require().NoError(err)
	s.False(p.Verified)
	s.Equal(rbac.CategoryProfessionalTechnical, p.Category)

	_, err = s.neuron.Profile(s.ctx, "p-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.neuron.Profile(s.ctx, "a-1")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	created := s.bus.History(eventbus.HistoryFilter{Type: events.ProfessionalProfileCreated})
	s.Require().Len(created, 1)
	s.Equal("radiologist", created[0].String("role"))
}

func (s *NeuronSuite) TestVerification() {
	s.publish(events.AuthUserRegistered, map[string]any{
		"user_id":    "d-1",
		"identifier": "dr.obiang@example.com",
		"role":       "doctor_general",
	})
	s.now = s.now.Add(24 * time.Hour)

	s.publish(events.ProfessionalVerificationRequested, map[string]any{
		"user_id":        "d-1",
		"verified_by":    "ministry-7",
		"license_number": "ONMG-1234",
	})
	s.publish(events.ProfessionalVerificationRequested, map[string]any{"user_id": "d-1", "verified_by": "ministry-8"})

	p, err := s.neuron.Profile(s.ctx, "d-1")
	s.Require().NoError(err)
	s.True(p.Verified)
	s.Equal("ministry-7", p.VerifiedBy)
	s.Equal("ONMG-1234", p.LicenseNumber)
	s.Require().NotNil(p.VerifiedAt)
	s.Equal(s.now, *p.VerifiedAt)

	verified := s.bus.History(eventbus.HistoryFilter{Type: events.ProfessionalVerified})
	s.Require().Len(verified, 1, "verifying twice is a no-op")
	s.Equal("dr.obiang@example.com", verified[0].String("identifier"))
}

func (s *NeuronSuite) TestVerifyingUnknownProfessionalIsAnError() {
	s.publish(events.ProfessionalVerificationRequested, map[string]any{"user_id": "ghost"})
	s.EqualValues(1, s.neuron.Metrics().Errors)
}
