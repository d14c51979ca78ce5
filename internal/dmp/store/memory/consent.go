package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"sante/internal/dmp/models"
	"sante/pkg/platform/sentinel"
)

// ConsentStore keeps consents per patient in insertion order.
type ConsentStore struct {
	mu       sync.RWMutex
	consents map[string][]*models.Consent
}

func NewConsentStore() *ConsentStore {
	return &ConsentStore{consents: make(map[string][]*models.Consent)}
}

func (s *ConsentStore) Save(_ context.Context, consent *models.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.consents[consent.PatientID] {
		if existing.ID == consent.ID {
			return sentinel.ErrConflict
		}
	}
	c := *consent
	s.consents[consent.PatientID] = append(s.consents[consent.PatientID], &c)
	return nil
}

func (s *ConsentStore) ListByPatient(_ context.Context, patientID string) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyConsents(s.consents[patientID], func(*models.Consent) bool { return true }), nil
}

func (s *ConsentStore) ListByPair(_ context.Context, patientID, professionalID string) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyConsents(s.consents[patientID], func(c *models.Consent) bool {
		return c.ProfessionalID == professionalID
	}), nil
}

// Revoke stamps RevokedAt on the patient's consent. A consent that is already
// revoked yields sentinel.ErrInvalidState.
func (s *ConsentStore) Revoke(_ context.Context, patientID string, consentID uuid.UUID, revokedAt time.Time) (*models.Consent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.consents[patientID] {
		if c.ID != consentID {
			continue
		}
		if c.RevokedAt != nil {
			return nil, sentinel.ErrInvalidState
		}
		at := revokedAt
		c.RevokedAt = &at
		out := *c
		return &out, nil
	}
	return nil, sentinel.ErrNotFound
}

func copyConsents(in []*models.Consent, keep func(*models.Consent) bool) []*models.Consent {
	out := make([]*models.Consent, 0, len(in))
	for _, c := range in {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}
