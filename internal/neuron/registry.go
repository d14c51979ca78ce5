package neuron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Registry holds neurons in registration order.
type Registry struct {
	mu      sync.RWMutex
	neurons []Neuron
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register appends neurons. Names must be unique.
func (r *Registry) Register(neurons ...Neuron) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range neurons {
		if r.indexLocked(n.Name()) >= 0 {
			return fmt.Errorf("neuron %q already registered", n.Name())
		}
		r.neurons = append(r.neurons, n)
	}
	return nil
}

// Get returns the neuron registered under name.
func (r *Registry) Get(name string) (Neuron, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.indexLocked(name)
	if idx < 0 {
		return nil, false
	}
	return r.neurons[idx], true
}

func (r *Registry) list() []Neuron {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.neurons)
}

// ActivateAll activates neurons in registration order. On the first failure
// it deactivates the ones already started, newest first, and returns the error.
func (r *Registry) ActivateAll(ctx context.Context) error {
	neurons := r.list()
	for i, n := range neurons {
		if err := n.Activate(ctx); err != nil {
			r.logger.ErrorContext(ctx, "neuron activation failed, rolling back",
				"neuron", n.Name(),
				"error", err,
			)
			for j := i - 1; j >= 0; j-- {
				if derr := neurons[j].Deactivate(ctx); derr != nil {
					r.logger.ErrorContext(ctx, "rollback deactivation failed",
						"neuron", neurons[j].Name(),
						"error", derr,
					)
				}
			}
			return err
		}
	}
	return nil
}

// DeactivateAll deactivates neurons in reverse registration order. Every
// neuron is attempted; errors are joined.
func (r *Registry) DeactivateAll(ctx context.Context) error {
	neurons := r.list()
	var errs []error
	for i := len(neurons) - 1; i >= 0; i-- {
		if err := neurons[i].Deactivate(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Health returns one entry per neuron, in registration order.
func (r *Registry) Health() []Health {
	neurons := r.list()
	out := make([]Health, 0, len(neurons))
	for _, n := range neurons {
		out = append(out, n.HealthCheck())
	}
	return out
}

func (r *Registry) indexLocked(name string) int {
	return slices.IndexFunc(r.neurons, func(n Neuron) bool { return n.Name() == name })
}
