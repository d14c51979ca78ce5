// Package eventbus is the in-process publish/subscribe dispatcher that neurons
// use to coordinate.
//
// Publish walks the subscribers of an event type sequentially, in subscription
// order, on the caller's goroutine. Each subscriber call is isolated: a returned
// error or a panic is recovered, counted and logged, and the walk continues.
// Delivery is at-most-once and best-effort; nothing survives a restart.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sante/internal/platform/metrics"
	dErrors "sante/pkg/domain-errors"
)

// DefaultHistorySize bounds the number of retained events.
const DefaultHistorySize = 10000

type subscription struct {
	id        uint64
	eventType string
	owner     string
	handler   Handler
}

// Bus is safe for concurrent use. Build one per process (or per test) with New
// and pass it to every neuron constructor.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscription
	nextID uint64
	closed bool

	stateMu       sync.Mutex
	history       *history
	totalEvents   int64
	eventsByType  map[string]int64
	failedEvents  int64
	handlerErrors int64
	avgProcessing float64
	samples       int64

	historySize int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	clock       func() time.Time
}

type Option func(*Bus)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// WithHistorySize overrides DefaultHistorySize. Non-positive values are ignored.
func WithHistorySize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.historySize = n
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(b *Bus) {
		if tracer != nil {
			b.tracer = tracer
		}
	}
}

// WithClock sets the time source used for event timestamps.
func WithClock(clock func() time.Time) Option {
	return func(b *Bus) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// New constructs a Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:         make(map[string][]*subscription),
		eventsByType: make(map[string]int64),
		historySize:  DefaultHistorySize,
		logger:       slog.Default(),
		tracer:       otel.Tracer("sante/eventbus"),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.history = newHistory(b.historySize)
	return b
}

// Publish records an event and delivers it to every current subscriber of
// eventType. Subscriber failures never fail the publish; only bus-level faults
// (empty type, closed bus) return a CodeBusDispatch error.
func (b *Bus) Publish(ctx context.Context, eventType string, data map[string]any, meta Metadata) (PublishResult, error) {
	ctx, span := b.tracer.Start(ctx, "eventbus.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.type", eventType),
		attribute.String("event.source", meta.Source),
	)

	if err := b.admit(eventType); err != nil {
		b.recordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.logger.ErrorContext(ctx, "event publish rejected",
			"event_type", eventType,
			"source", meta.Source,
			"error", err,
		)
		return PublishResult{}, err
	}

	now := b.clock()
	if meta.Timestamp == 0 {
		meta.Timestamp = now.UnixMilli()
	}
	if data == nil {
		data = map[string]any{}
	}
	evt := Event{
		ID:       uuid.New(),
		Type:     eventType,
		Data:     maps.Clone(data),
		Metadata: meta,
	}
	span.SetAttributes(attribute.String("event.id", evt.ID.String()))

	b.stateMu.Lock()
	b.history.push(evt.Redacted())
	b.totalEvents++
	b.eventsByType[eventType]++
	historyLen := b.history.len()
	b.stateMu.Unlock()
	b.metrics.SetHistorySize(historyLen)

	start := time.Now()
	for _, sub := range b.snapshot(eventType) {
		if err := b.invoke(ctx, sub, evt); err != nil {
			b.recordHandlerError(ctx, sub, evt, err)
			span.AddEvent("subscriber_error", trace.WithAttributes(
				attribute.String("owner", sub.owner),
				attribute.String("error", err.Error()),
			))
		}
	}
	b.recordProcessingTime(time.Since(start))
	b.metrics.ObservePublish(eventType, start)

	return PublishResult{Success: true, EventID: evt.ID}, nil
}

func (b *Bus) admit(eventType string) error {
	if eventType == "" {
		return dErrors.New(dErrors.CodeBusDispatch, "event type is required")
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return dErrors.New(dErrors.CodeBusDispatch, "event bus is closed")
	}
	return nil
}

// snapshot returns the subscribers registered for eventType right now. Slices
// in the registry are replaced, never mutated in place, so the returned slice
// is stable while subscriptions change concurrently.
func (b *Bus) snapshot(eventType string) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.subs[eventType]
}

func (b *Bus) invoke(ctx context.Context, sub *subscription, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return sub.handler(ctx, evt.clone())
}

// Subscribe registers handler for eventType on behalf of owner and returns a
// disposer. Calling the disposer more than once is harmless.
func (b *Bus) Subscribe(eventType string, handler Handler, owner string) (unsubscribe func()) {
	if handler == nil {
		panic("eventbus: nil handler for " + eventType)
	}
	b.mu.Lock()
	b.nextID++
	sub := &subscription{
		id:        b.nextID,
		eventType: eventType,
		owner:     owner,
		handler:   handler,
	}
	b.subs[eventType] = append(slices.Clip(b.subs[eventType]), sub)
	b.mu.Unlock()

	b.logger.Debug("subscribed", "event_type", eventType, "owner", owner)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(sub) })
	}
}

func (b *Bus) unsubscribe(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current := b.subs[sub.eventType]
	idx := slices.IndexFunc(current, func(s *subscription) bool { return s.id == sub.id })
	if idx < 0 {
		return
	}
	next := slices.Delete(slices.Clone(current), idx, idx+1)
	if len(next) == 0 {
		delete(b.subs, sub.eventType)
		return
	}
	b.subs[sub.eventType] = next
}

// SubscriberCount returns how many handlers are registered for eventType.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

// History returns retained events, oldest first, after applying filter.
func (b *Bus) History(filter HistoryFilter) []Event {
	b.stateMu.Lock()
	events := b.history.snapshot()
	b.stateMu.Unlock()

	if filter.Type != "" {
		events = slices.DeleteFunc(events, func(e Event) bool { return e.Type != filter.Type })
	}
	if !filter.Since.IsZero() {
		since := filter.Since.UnixMilli()
		events = slices.DeleteFunc(events, func(e Event) bool { return e.Metadata.Timestamp < since })
	}
	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	for i := range events {
		events[i] = events[i].clone()
	}
	return events
}

// Metrics returns a snapshot of the bus counters.
func (b *Bus) Metrics() MetricsSnapshot {
	b.mu.RLock()
	subscribers := make(map[string]int, len(b.subs))
	for eventType, subs := range b.subs {
		subscribers[eventType] = len(subs)
	}
	b.mu.RUnlock()

	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	avg := time.Duration(b.avgProcessing)
	return MetricsSnapshot{
		TotalEvents:           b.totalEvents,
		EventsByType:          maps.Clone(b.eventsByType),
		FailedEvents:          b.failedEvents,
		HandlerErrors:         b.handlerErrors,
		AverageProcessingTime: avg,
		AverageProcessingMs:   float64(avg) / float64(time.Millisecond),
		Subscribers:           subscribers,
		HistorySize:           b.history.len(),
	}
}

// Reset clears history and counters. Subscriptions are kept.
func (b *Bus) Reset() {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.history.reset()
	b.totalEvents = 0
	b.eventsByType = make(map[string]int64)
	b.failedEvents = 0
	b.handlerErrors = 0
	b.avgProcessing = 0
	b.samples = 0
}

// Close makes every later Publish fail. Subscriptions stay registered so that
// neurons can still deactivate cleanly.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

func (b *Bus) recordFailure() {
	b.stateMu.Lock()
	b.failedEvents++
	b.stateMu.Unlock()
	b.metrics.IncrementFailedEvents()
}

func (b *Bus) recordHandlerError(ctx context.Context, sub *subscription, evt Event, err error) {
	b.stateMu.Lock()
	b.handlerErrors++
	b.stateMu.Unlock()
	b.metrics.IncrementHandlerErrors(evt.Type, sub.owner)
	b.logger.WarnContext(ctx, "event handler failed",
		"event_type", evt.Type,
		"event_id", evt.ID.String(),
		"owner", sub.owner,
		"error", err,
	)
}

// recordProcessingTime folds sample into the running average:
// avg' = (avg*(n-1) + sample) / n.
func (b *Bus) recordProcessingTime(sample time.Duration) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	b.samples++
	n := float64(b.samples)
	b.avgProcessing = (b.avgProcessing*(n-1) + float64(sample)) / n
}
