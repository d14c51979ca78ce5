package neuron

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"sante/internal/eventbus"
	"sante/internal/platform/metrics"
)

// Base implements the Neuron lifecycle. Domain neurons embed it, declare
// their subscriptions with On, and call Emit to publish.
type Base struct {
	name    string
	bus     *eventbus.Bus
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time

	mu        sync.Mutex
	state     State
	hooks     Hooks
	subs      []Subscription
	disposers []func()
	startTime time.Time

	processed atomic.Int64
	emitted   atomic.Int64
	errors    atomic.Int64
}

type Option func(*Base)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Base) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Base) {
		b.metrics = m
	}
}

func WithHooks(h Hooks) Option {
	return func(b *Base) {
		b.hooks = h
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *Base) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// NewBase returns an inactive Base bound to bus.
func NewBase(name string, bus *eventbus.Bus, opts ...Option) *Base {
	b := &Base{
		name:   name,
		bus:    bus,
		logger: slog.Default(),
		clock:  time.Now,
		state:  StateInactive,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("neuron", name)
	return b
}

func (b *Base) Name() string {
	return b.name
}

// Now reads the neuron's clock.
func (b *Base) Now() time.Time {
	return b.clock()
}

// Logger returns the neuron-scoped logger.
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// On declares a subscription. Declarations take effect on the next Activate.
func (b *Base) On(eventType string, handle eventbus.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, Subscription{EventType: eventType, Handle: handle})
}

// SetHooks replaces the lifecycle hooks.
func (b *Base) SetHooks(h Hooks) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = h
}

// State reports the current lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsActive reports whether the neuron is currently active.
func (b *Base) IsActive() bool {
	return b.State() == StateActive
}

// Activate registers every declared subscription. Calling it on a neuron that
// is not inactive logs a warning and does nothing. If OnActivate fails the
// neuron stays inactive with nothing registered.
func (b *Base) Activate(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateInactive {
		state := b.state
		b.mu.Unlock()
		b.logger.WarnContext(ctx, "activate ignored", "state", string(state))
		return nil
	}
	b.state = StateActivating
	hooks := b.hooks
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	if hooks.OnActivate != nil {
		if err := hooks.OnActivate(ctx); err != nil {
			b.setState(StateInactive)
			b.logger.ErrorContext(ctx, "activation failed", "error", err)
			return fmt.Errorf("activate %s: %w", b.name, err)
		}
	}

	b.processed.Store(0)
	b.emitted.Store(0)
	b.errors.Store(0)

	disposers := make([]func(), 0, len(subs))
	for _, sub := range subs {
		disposers = append(disposers, b.bus.Subscribe(sub.EventType, b.wrap(sub), b.name))
	}

	b.mu.Lock()
	b.disposers = disposers
	b.startTime = b.clock()
	b.state = StateActive
	b.mu.Unlock()

	b.metrics.SetNeuronActive(b.name, true)
	b.logger.InfoContext(ctx, "neuron activated", "subscriptions", len(subs))
	return nil
}

// Deactivate removes every subscription and runs OnDeactivate. It is a no-op
// unless the neuron is active.
func (b *Base) Deactivate(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateActive {
		b.mu.Unlock()
		return nil
	}
	b.state = StateDeactivating
	disposers := b.disposers
	b.disposers = nil
	hooks := b.hooks
	b.mu.Unlock()

	for _, dispose := range disposers {
		dispose()
	}

	var hookErr error
	if hooks.OnDeactivate != nil {
		hookErr = hooks.OnDeactivate(ctx)
	}
	b.setState(StateInactive)
	b.metrics.SetNeuronActive(b.name, false)

	if hookErr != nil {
		b.logger.ErrorContext(ctx, "deactivation hook failed", "error", hookErr)
		return fmt.Errorf("deactivate %s: %w", b.name, hookErr)
	}
	b.logger.InfoContext(ctx, "neuron deactivated")
	return nil
}

// Emit publishes an event with this neuron as its source.
func (b *Base) Emit(ctx context.Context, eventType string, data map[string]any) (eventbus.PublishResult, error) {
	res, err := b.bus.Publish(ctx, eventType, data, eventbus.Metadata{Source: b.name})
	if err != nil {
		return res, err
	}
	b.emitted.Add(1)
	b.metrics.IncrementNeuronEmitted(b.name)
	return res, nil
}

// Metrics returns a copy of the handler counters.
func (b *Base) Metrics() HandlerMetrics {
	b.mu.Lock()
	start := b.startTime
	b.mu.Unlock()
	return HandlerMetrics{
		EventsProcessed: b.processed.Load(),
		EventsEmitted:   b.emitted.Load(),
		Errors:          b.errors.Load(),
		StartTime:       start,
	}
}

func (b *Base) HealthCheck() Health {
	status := StateInactive
	if b.IsActive() {
		status = StateActive
	}
	return Health{Name: b.name, Status: status, Metrics: b.Metrics()}
}

func (b *Base) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// wrap counts the event before dispatch and the failure after it, then hands
// the error (or recovered panic) back to the bus.
func (b *Base) wrap(sub Subscription) eventbus.Handler {
	return func(ctx context.Context, evt eventbus.Event) (err error) {
		b.processed.Add(1)
		b.metrics.IncrementNeuronProcessed(b.name)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s: panic handling %s: %v", b.name, evt.Type, r)
			}
			if err != nil {
				b.errors.Add(1)
				b.metrics.IncrementNeuronErrors(b.name)
			}
		}()
		return sub.Handle(ctx, evt)
	}
}
