package eventbus

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Metadata is stamped on every event at publish time.
type Metadata struct {
	// Timestamp is the publish time in Unix milliseconds.
	Timestamp int64  `json:"timestamp"`
	Source    string `json:"source"`
}

// Event is an immutable fact published on the bus.
type Event struct {
	ID       uuid.UUID      `json:"id"`
	Type     string         `json:"type"`
	Data     map[string]any `json:"data"`
	Metadata Metadata       `json:"metadata"`
}

// Time returns the publish time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Metadata.Timestamp)
}

// String returns e.Data[key] when it holds a string.
func (e Event) String(key string) string {
	v, _ := e.Data[key].(string)
	return v
}

// clone gives each consumer its own top-level data map so no subscriber can
// alter what another one, or the history, sees.
func (e Event) clone() Event {
	e.Data = maps.Clone(e.Data)
	return e
}

// SecretKeys are data keys that never leave a subscriber call: history and
// outbound copies drop them.
var SecretKeys = []string{"password", "new_password", "reset_token", "token"}

// Redacted returns a copy of e without SecretKeys.
func (e Event) Redacted() Event {
	e = e.clone()
	for _, key := range SecretKeys {
		delete(e.Data, key)
	}
	return e
}

// Handler reacts to one event. A returned error is counted and logged by the
// bus; it never reaches the publisher.
type Handler func(ctx context.Context, evt Event) error

// PublishResult reports a successful publish.
type PublishResult struct {
	Success bool      `json:"success"`
	EventID uuid.UUID `json:"event_id"`
}

// HistoryFilter narrows History. Filters apply in order type, since, limit.
type HistoryFilter struct {
	Type  string
	Since time.Time
	// Limit keeps only the newest Limit matches; zero means no limit.
	Limit int
}

// MetricsSnapshot is a point-in-time copy of the bus counters.
type MetricsSnapshot struct {
	TotalEvents           int64            `json:"total_events"`
	EventsByType          map[string]int64 `json:"events_by_type"`
	FailedEvents          int64            `json:"failed_events"`
	HandlerErrors         int64            `json:"handler_errors"`
	AverageProcessingTime time.Duration    `json:"-"`
	AverageProcessingMs   float64          `json:"average_processing_ms"`
	Subscribers           map[string]int   `json:"subscribers"`
	HistorySize           int              `json:"history_size"`
}
