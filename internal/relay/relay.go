// Package relay forwards selected bus events to an external log (Kafka) so
// systems outside the process can follow domain facts.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sante/internal/eventbus"
	"sante/internal/neuron"
	"sante/pkg/platform/strings"
)

//go:generate mockgen -source=relay.go -destination=mocks/relay-mocks.go -package=mocks Producer

const (
	NeuronName     = "relay"
	DefaultTimeout = 5 * time.Second
)

// Producer writes one keyed record.
type Producer interface {
	Produce(ctx context.Context, key string, value []byte) error
}

type Neuron struct {
	*neuron.Base
	producer   Producer
	eventTypes []string
	timeout    time.Duration
}

// NewNeuron subscribes to eventTypes (trimmed, deduplicated). Records are keyed
// by event type so each type stays ordered within its partition.
func NewNeuron(producer Producer, bus *eventbus.Bus, eventTypes []string, opts ...neuron.Option) *Neuron {
	n := &Neuron{
		Base:       neuron.NewBase(NeuronName, bus, opts...),
		producer:   producer,
		eventTypes: strings.NormalizeList(eventTypes),
		timeout:    DefaultTimeout,
	}
	for _, eventType := range n.eventTypes {
		n.On(eventType, n.forward)
	}
	return n
}

func (n *Neuron) EventTypes() []string {
	return append([]string(nil), n.eventTypes...)
}

func (n *Neuron) forward(ctx context.Context, evt eventbus.Event) error {
	value, err := json.Marshal(evt.Redacted())
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.producer.Produce(ctx, evt.Type, value); err != nil {
		n.Logger().WarnContext(ctx, "relay failed", "event_type", evt.Type, "event_id", evt.ID.String(), "error", err)
		return err
	}
	return nil
}
