// Package neuron defines the lifecycle contract shared by every domain handler
// attached to the event bus, plus a composable Base that implements it.
package neuron

import (
	"context"
	"time"

	"sante/internal/eventbus"
)

//go:generate mockgen -source=neuron.go -destination=mocks/neuron-mocks.go -package=mocks Neuron

// Neuron is an autonomous handler with an explicit activate/deactivate
// lifecycle. Implementations usually embed *Base.
type Neuron interface {
	Name() string
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
	HealthCheck() Health
	Metrics() HandlerMetrics
}

// State is a lifecycle state.
type State string

const (
	StateInactive     State = "inactive"
	StateActivating   State = "activating"
	StateActive       State = "active"
	StateDeactivating State = "deactivating"
)

// HandlerMetrics are per-neuron counters. They reset on every activation.
type HandlerMetrics struct {
	EventsProcessed int64     `json:"events_processed"`
	EventsEmitted   int64     `json:"events_emitted"`
	Errors          int64     `json:"errors"`
	StartTime       time.Time `json:"start_time"`
}

// Health is the read-only view returned by HealthCheck.
type Health struct {
	Name    string         `json:"name"`
	Status  State          `json:"status"`
	Metrics HandlerMetrics `json:"metrics"`
}

// Subscription declares an event type a neuron listens to while active.
type Subscription struct {
	EventType string
	Handle    eventbus.Handler
}

// Hooks run around subscription (de)registration. Both are optional.
type Hooks struct {
	OnActivate   func(ctx context.Context) error
	OnDeactivate func(ctx context.Context) error
}
