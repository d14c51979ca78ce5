package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// account creation, consent changes, medical record access.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and forensics.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// UserID is the account the event is about (patient for record access).
	UserID   string
	Subject  string
	Action   string
	Decision string
	Reason   string
	// ActorID is who performed the action when different from UserID.
	ActorID   string
	RequestID string
	ClientIP  string
}

type AuditEvent string

const (
	// Auth events
	EventUserRegistered         AuditEvent = "user_registered"
	EventLoginSucceeded         AuditEvent = "login_succeeded"
	EventLoginFailed            AuditEvent = "login_failed"
	EventTokenRefreshed         AuditEvent = "token_refreshed"
	EventPasswordResetRequested AuditEvent = "password_reset_requested"
	EventPasswordResetCompleted AuditEvent = "password_reset_completed"

	// Consent events
	EventConsentGranted AuditEvent = "consent_granted"
	EventConsentRevoked AuditEvent = "consent_revoked"

	// Medical record events
	EventDMPAccessGranted   AuditEvent = "dmp_access_granted"
	EventDMPAccessDenied    AuditEvent = "dmp_access_denied"
	EventClinicalEntryAdded AuditEvent = "clinical_entry_added"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered:         CategoryCompliance,
	EventConsentGranted:         CategoryCompliance,
	EventConsentRevoked:         CategoryCompliance,
	EventDMPAccessGranted:       CategoryCompliance,
	EventClinicalEntryAdded:     CategoryCompliance,
	EventPasswordResetCompleted: CategoryCompliance,

	EventLoginFailed:            CategorySecurity,
	EventDMPAccessDenied:        CategorySecurity,
	EventPasswordResetRequested: CategorySecurity,

	EventLoginSucceeded: CategoryOperations,
	EventTokenRefreshed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
