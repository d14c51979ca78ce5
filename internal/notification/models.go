package notification

import (
	"time"

	"github.com/google/uuid"

	"sante/pkg/email"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Notification is one message to one recipient, produced by a domain event.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Trigger   string    `json:"trigger"`
	EventID   uuid.UUID `json:"event_id"`
	Channel   Channel   `json:"channel"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"-"`
	Status    Status    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChannelFor routes email-shaped identifiers to email and everything else
// (phone numbers) to SMS.
func ChannelFor(recipient string) Channel {
	if email.IsValid(email.Normalize(recipient)) {
		return ChannelEmail
	}
	return ChannelSMS
}
