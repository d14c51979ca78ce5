// Package publisher emits audit events to a Store, either inline or through a
// bounded buffer drained by a background goroutine.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "sante/pkg/platform/audit"
)

// ErrBufferFull is returned by Emit in async mode when the buffer is full.
// The event is dropped.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	bufferSize int
	buffer     chan audit.Event
	done       chan struct{}
	closeOnce  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches Emit to non-blocking mode with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.buffer = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit stamps the timestamp and category when missing and hands the event to
// the store (sync mode) or the buffer (async mode).
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.buffer <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit event dropped",
			"action", event.Action,
			"user_id", event.UserID,
		)
		return ErrBufferFull
	}
}

func (p *Publisher) List(ctx context.Context, userID string) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

func (p *Publisher) Recent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close stops accepting async events and blocks until the buffer is drained.
// Emit must not be called after Close.
func (p *Publisher) Close() {
	if p.buffer == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.buffer)
		<-p.done
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"user_id", event.UserID,
				"error", err,
			)
		}
	}
}
