// Package auth wires account management onto the event bus.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sante/internal/auth/models"
	"sante/internal/eventbus"
	"sante/internal/events"
	"sante/internal/neuron"

	dErrors "sante/pkg/domain-errors"
)

// NeuronName is the bus owner and event source for the auth neuron.
const NeuronName = "auth"

// Service is the account service the neuron drives.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	RefreshToken(ctx context.Context, oldToken string) (*models.RefreshResult, error)
	RequestPasswordReset(ctx context.Context, identifier string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Neuron owns registration and login for every channel. HTTP requests and
// bus requests both go through it, so auth.user_registered and the login
// outcome events are emitted exactly once per operation.
type Neuron struct {
	*neuron.Base
	service Service
}

func NewNeuron(service Service, bus *eventbus.Bus, opts ...neuron.Option) *Neuron {
	n := &Neuron{
		Base:    neuron.NewBase(NeuronName, bus, opts...),
		service: service,
	}
	n.On(events.AuthRegisterRequested, n.onRegisterRequested)
	n.On(events.AuthLoginRequested, n.onLoginRequested)
	n.On(events.AuthPasswordResetRequested, n.onPasswordResetRequested)
	return n
}

// Register creates the account and announces it.
func (n *Neuron) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	user, err := n.service.Register(ctx, req)
	if err != nil {
		n.emit(ctx, events.AuthRegistrationFailed, map[string]any{
			"identifier": req.Identifier,
			"error":      string(dErrors.CodeOf(err)),
		})
		return nil, err
	}
	n.emit(ctx, events.AuthUserRegistered, userRegisteredData(user))
	return user, nil
}

// Login authenticates and emits the outcome. Failed logins carry only the
// generic reason.
func (n *Neuron) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	res, err := n.service.Login(ctx, req)
	if err != nil {
		n.emit(ctx, events.AuthLoginFailed, map[string]any{
			"identifier": req.Identifier,
			"reason":     string(dErrors.CodeOf(err)),
		})
		return nil, err
	}
	n.emit(ctx, events.AuthLoginSucceeded, map[string]any{
		"user_id":    res.User.ID,
		"identifier": res.User.Identifier,
		"role":       res.Role,
		"expires_at": res.ExpiresAt.Format(time.RFC3339),
	})
	return res, nil
}

func (n *Neuron) RefreshToken(ctx context.Context, oldToken string) (*models.RefreshResult, error) {
	return n.service.RefreshToken(ctx, oldToken)
}

func (n *Neuron) RequestPasswordReset(ctx context.Context, identifier string) (string, error) {
	return n.service.RequestPasswordReset(ctx, identifier)
}

func (n *Neuron) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return n.service.ResetPassword(ctx, resetToken, newPassword)
}

func (n *Neuron) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return n.service.GetUser(ctx, id)
}

// PasswordResetIssued hands a reset token to whoever delivers notifications.
func (n *Neuron) PasswordResetIssued(ctx context.Context, identifier, resetToken string) {
	n.emit(ctx, events.AuthPasswordResetIssued, map[string]any{
		"identifier":  identifier,
		"reset_token": resetToken,
	})
}

func (n *Neuron) onRegisterRequested(ctx context.Context, evt eventbus.Event) error {
	_, err := n.Register(ctx, models.RegisterRequest{
		Identifier: evt.String("identifier"),
		Password:   evt.String("password"),
		Role:       evt.String("role"),
		FirstName:  evt.String("first_name"),
		LastName:   evt.String("last_name"),
	})
	return err
}

func (n *Neuron) onLoginRequested(ctx context.Context, evt eventbus.Event) error {
	_, err := n.Login(ctx, models.LoginRequest{
		Identifier: evt.String("identifier"),
		Password:   evt.String("password"),
	})
	if dErrors.HasCode(err, dErrors.CodeInvalidCredentials) {
		return nil
	}
	return err
}

// onPasswordResetRequested stays silent for unknown identifiers.
func (n *Neuron) onPasswordResetRequested(ctx context.Context, evt eventbus.Event) error {
	identifier := evt.String("identifier")
	token, err := n.RequestPasswordReset(ctx, identifier)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		n.Logger().InfoContext(ctx, "password reset requested for unknown identifier")
		return nil
	}
	if err != nil {
		return err
	}
	n.PasswordResetIssued(ctx, identifier, token)
	return nil
}

func (n *Neuron) emit(ctx context.Context, eventType string, data map[string]any) {
	if _, err := n.Emit(ctx, eventType, data); err != nil {
		n.Logger().ErrorContext(ctx, "emit failed", "event_type", eventType, "error", err)
	}
}

func userRegisteredData(u *models.User) map[string]any {
	view := u.View()
	return map[string]any{
		"user_id":         view.ID,
		"identifier":      view.Identifier,
		"identifier_kind": view.IdentifierKind,
		"role":            view.Role,
		"category":        view.Category,
		"first_name":      view.FirstName,
		"last_name":       view.LastName,
	}
}
