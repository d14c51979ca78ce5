package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sante/internal/auth/handler/mocks"
	"sante/internal/auth/models"
	"sante/internal/eventbus"
	"sante/internal/events"
	"sante/internal/neuron"
	"sante/internal/rbac"

	dErrors "sante/pkg/domain-errors"
)

type NeuronSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	bus     *eventbus.Bus
	neuron  *Neuron

	mu       sync.Mutex
	received []eventbus.Event
}

func TestNeuronSuite(t *testing.T) {
	suite.Run(t, new(NeuronSuite))
}

func (s *NeuronSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.bus = eventbus.New(eventbus.WithLogger(logger))
	s.neuron = NewNeuron(s.service, s.bus, neuron.WithLogger(logger))
	s.received = nil

	for _, t := range []string{
		events.AuthUserRegistered,
		events.AuthRegistrationFailed,
		events.AuthLoginSucceeded,
		events.AuthLoginFailed,
		events.AuthPasswordResetIssued,
	} {
		s.bus.Subscribe(t, func(_ context.Context, evt eventbus.Event) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.received = append(s.received, evt)
			return nil
		}, "test")
	}
	s.Require().NoError(s.neuron.Activate(context.Background()))
}

func (s *NeuronSuite) TearDownTest() {
	s.Require().NoError(s.neuron.Deactivate(context.Background()))
}

func (s *NeuronSuite) emitted() []eventbus.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]eventbus.Event(nil), s.received...)
}

func (s *NeuronSuite) publish(eventType string, data map[string]any) {
	_, err := s.bus.Publish(context.Background(), eventType, data, eventbus.Metadata{Source: "test"})
	s.Require().NoError(err)
}

func (s *NeuronSuite) newUser(role rbac.Role) *models.User {
	return &models.User{
		ID:             uuid.New(),
		Identifier:     "alice@example.com",
		IdentifierKind: models.IdentifierEmail,
		Role:           role,
		FirstName:      "Alice",
		Active:         true,
	}
}

func (s *NeuronSuite) TestRegisterRequestedEmitsUserRegistered() {
	user := s.newUser(rbac.RolePatient)
	s.service.EXPECT().Register(gomock.Any(), models.RegisterRequest{
		Identifier: "alice@example.com",
		Password:   "hunter22hunter",
		Role:       "patient",
		FirstName:  "Alice",
	}).Return(user, nil)

	s.publish(events.AuthRegisterRequested, map[string]any{
		"identifier": "alice@example.com",
		"password":   "hunter22hunter",
		"role":       "patient",
		"first_name": "Alice",
	})

	got := s.emitted()
	s.Require().Len(got, 1)
	s.Equal(events.AuthUserRegistered, got[0].Type)
	s.Equal(NeuronName, got[0].Metadata.Source)
	s.Equal(user.ID.String(), got[0].String("user_id"))
	s.Equal("patient", got[0].String("role"))
	s.NotContains(got[0].Data, "password")

	m := s.neuron.Metrics()
	s.EqualValues(1, m.EventsProcessed)
	s.EqualValues(1, m.EventsEmitted)
	s.EqualValues(0, m.Errors)
}

func (s *NeuronSuite) TestRegisterFailureIsCountedAndAnnounced() {
	s.service.EXPECT().Register(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeConflict, "identifier already registered"))

	s.publish(events.AuthRegisterRequested, map[string]any{"identifier": "alice@example.com"})

	got := s.emitted()
	s.Require().Len(got, 1)
	s.Equal(events.AuthRegistrationFailed, got[0].Type)
	s.Equal(string(dErrors.CodeConflict), got[0].String("error"))
	s.EqualValues(1, s.neuron.Metrics().Errors)
	s.EqualValues(1, s.bus.Metrics().HandlerErrors)
}

func (s *NeuronSuite) TestLoginOutcomes() {
	s.Run("success", func() {
		s.received = nil
		user := s.newUser(rbac.RoleDoctorGeneral)
		s.service.EXPECT().Login(gomock.Any(), models.LoginRequest{Identifier: "alice@example.com", Password: "pw"}).
			Return(&models.LoginResult{
				User:      user.View(),
				Role:      string(user.Role),
				Token:     "jwt",
				TokenType: "Bearer",
				ExpiresAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			}, nil)

		res, err := s.neuron.Login(context.Background(), models.LoginRequest{Identifier: "alice@example.com", Password: "pw"})
		s.Require().NoError(err)
		s.Equal("jwt", res.Token)

		got := s.emitted()
		s.Require().Len(got, 1)
		s.Equal(events.AuthLoginSucceeded, got[0].Type)
		s.NotContains(got[0].Data, "token")
	})

	s.Run("bad credentials via bus are not handler errors", func() {
		s.received = nil
		errsBefore := s.neuron.Metrics().Errors
		s.service.EXPECT().Login(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInvalidCredentials, "invalid credentials"))

		s.publish(events.AuthLoginRequested, map[string]any{"identifier": "alice@example.com", "password": "nope"})

		got := s.emitted()
		s.Require().Len(got, 1)
		s.Equal(events.AuthLoginFailed, got[0].Type)
		s.Equal(string(dErrors.CodeInvalidCredentials), got[0].String("reason"))
		s.Equal(errsBefore, s.neuron.Metrics().Errors)
	})
}

func (s *NeuronSuite) TestPasswordResetRequested() {
	s.Run("known identifier", func() {
		s.received = nil
		s.service.EXPECT().RequestPasswordReset(gomock.Any(), "alice@example.com").Return("reset-jwt", nil)

		s.publish(events.AuthPasswordResetRequested, map[string]any{"identifier": "alice@example.com"})

		got := s.emitted()
		s.Require().Len(got, 1)
		s.Equal(events.AuthPasswordResetIssued, got[0].Type)
		s.Equal("reset-jwt", got[0].String("reset_token"))
	})

	s.Run("unknown identifier emits nothing", func() {
		s.received = nil
		s.service.EXPECT().RequestPasswordReset(gomock.Any(), "ghost@example.com").
			Return("", dErrors.New(dErrors.CodeNotFound, "user not found"))

		s.publish(events.AuthPasswordResetRequested, map[string]any{"identifier": "ghost@example.com"})

		s.Empty(s.emitted())
	})
}

func (s *NeuronSuite) TestInactiveNeuronIgnoresRequests() {
	s.Require().NoError(s.neuron.Deactivate(context.Background()))
	s.publish(events.AuthRegisterRequested, map[string]any{"identifier": "alice@example.com"})
	s.Empty(s.emitted())
	s.Require().NoError(s.neuron.Activate(context.Background()))
}
