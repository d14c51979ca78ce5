// Package notification turns domain events into messages for patients and
// professionals and hands them to a Sender on a background worker.
package notification

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"sante/internal/eventbus"
	"sante/internal/events"
	"sante/internal/neuron"
	"sante/internal/platform/metrics"
)

const (
	NeuronName       = "notification"
	DefaultQueueSize = 256
	DefaultLogSize   = 1000
)

type Config struct {
	QueueSize int
	LogSize   int
	Metrics   *metrics.Metrics
}

// Neuron enqueues notifications from its bus handlers and delivers them on a
// single worker started and stopped with the neuron's lifecycle. Deactivate
// drains whatever is queued before returning.
type Neuron struct {
	*neuron.Base
	sender  Sender
	metrics *metrics.Metrics
	queue   chan Notification
	logSize int

	mu     sync.Mutex
	log    []Notification
	stop   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

func NewNeuron(sender Sender, bus *eventbus.Bus, cfg Config, opts ...neuron.Option) *Neuron {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.LogSize <= 0 {
		cfg.LogSize = DefaultLogSize
	}
	n := &Neuron{
		Base:    neuron.NewBase(NeuronName, bus, opts...),
		sender:  sender,
		metrics: cfg.Metrics,
		queue:   make(chan Notification, cfg.QueueSize),
		logSize: cfg.LogSize,
	}
	n.SetHooks(neuron.Hooks{OnActivate: n.start, OnDeactivate: n.drain})

	n.On(events.AppointmentScheduled, n.onAppointmentScheduled)
	n.On(events.AppointmentCancelled, n.onAppointmentCancelled)
	n.On(events.AuthPasswordResetIssued, n.onPasswordResetIssued)
	n.On(events.ProfessionalVerified, n.onProfessionalVerified)
	return n
}

// Log returns delivered and failed notifications, oldest first.
func (n *Neuron) Log() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.log))
	copy(out, n.log)
	return out
}

func (n *Neuron) start(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	n.mu.Lock()
	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	n.cancel = cancel
	stop, done := n.stop, n.done
	n.mu.Unlock()

	go n.run(workerCtx, stop, done)
	return nil
}

func (n *Neuron) drain(ctx context.Context) error {
	n.mu.Lock()
	stop, done, cancel := n.stop, n.done, n.cancel
	n.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	defer cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain notification queue: %w", ctx.Err())
	}
}

func (n *Neuron) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case msg := <-n.queue:
			n.deliver(ctx, msg)
		case <-stop:
			for {
				select {
				case msg := <-n.queue:
					n.deliver(ctx, msg)
				default:
					return
				}
			}
		}
	}
}

func (n *Neuron) deliver(ctx context.Context, msg Notification) {
	err := n.sender.Send(ctx, msg)
	if err != nil {
		n.Logger().WarnContext(ctx, "notification failed",
			"notification_id", msg.ID.String(),
			"channel", string(msg.Channel),
			"error", err,
		)
	}
	n.finish(ctx, msg, err)
}

// finish records the outcome and announces it on the bus.
func (n *Neuron) finish(ctx context.Context, msg Notification, err error) {
	eventType := events.NotificationSent
	msg.Status = StatusSent
	if err != nil {
		eventType = events.NotificationFailed
		msg.Status = StatusFailed
		msg.Error = err.Error()
	}
	n.metrics.RecordNotification(string(msg.Channel), err == nil)

	n.mu.Lock()
	n.log = append(n.log, msg)
	if over := len(n.log) - n.logSize; over > 0 {
		n.log = append(n.log[:0:0], n.log[over:]...)
	}
	n.mu.Unlock()

	data := map[string]any{
		"notification_id": msg.ID.String(),
		"trigger":         msg.Trigger,
		"channel":         string(msg.Channel),
		"recipient":       msg.Recipient,
	}
	if err != nil {
		data["error"] = msg.Error
	}
	if _, emitErr := n.Emit(ctx, eventType, data); emitErr != nil {
		n.Logger().ErrorContext(ctx, "notification outcome not published", "error", emitErr)
	}
}

// enqueue never blocks the publisher; a full queue fails the notification.
func (n *Neuron) enqueue(ctx context.Context, evt eventbus.Event, recipient, subject, body string) {
	if recipient == "" {
		n.Logger().WarnContext(ctx, "notification without recipient", "trigger", evt.Type, "event_id", evt.ID.String())
		return
	}
	msg := Notification{
		ID:        uuid.New(),
		Trigger:   evt.Type,
		EventID:   evt.ID,
		Channel:   ChannelFor(recipient),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		CreatedAt: n.Now(),
	}
	select {
	case n.queue <- msg:
	default:
		n.finish(ctx, msg, fmt.Errorf("notification queue full"))
	}
}

func (n *Neuron) onAppointmentScheduled(ctx context.Context, evt eventbus.Event) error {
	at := evt.String("scheduled_at")
	n.enqueue(ctx, evt, evt.String("patient_identifier"), "Appointment confirmed",
		fmt.Sprintf("Your appointment on %s is confirmed.", at))
	n.enqueue(ctx, evt, evt.String("professional_identifier"), "New appointment",
		fmt.Sprintf("A patient booked an appointment with you on %s.", at))
	return nil
}

func (n *Neuron) onAppointmentCancelled(ctx context.Context, evt eventbus.Event) error {
	body := fmt.Sprintf("The appointment on %s has been cancelled.", evt.String("scheduled_at"))
	n.enqueue(ctx, evt, evt.String("patient_identifier"), "Appointment cancelled", body)
	n.enqueue(ctx, evt, evt.String("professional_identifier"), "Appointment cancelled", body)
	return nil
}

func (n *Neuron) onPasswordResetIssued(ctx context.Context, evt eventbus.Event) error {
	n.enqueue(ctx, evt, evt.String("identifier"), "Password reset",
		fmt.Sprintf("Use this code to reset your password: %s", evt.String("reset_token")))
	return nil
}

func (n *Neuron) onProfessionalVerified(ctx context.Context, evt eventbus.Event) error {
	n.enqueue(ctx, evt, evt.String("identifier"), "Account verified",
		"Your professional account has been verified. You can now receive appointments.")
	return nil
}
