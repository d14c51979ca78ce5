package eventbus

import "context"

// Emitter publishes on a bus under a fixed source, for services that announce
// facts but do not subscribe to anything.
type Emitter struct {
	bus    *Bus
	source string
}

func NewEmitter(bus *Bus, source string) *Emitter {
	return &Emitter{bus: bus, source: source}
}

func (e *Emitter) Emit(ctx context.Context, eventType string, data map[string]any) error {
	_, err := e.bus.Publish(ctx, eventType, data, Metadata{Source: e.source})
	return err
}
