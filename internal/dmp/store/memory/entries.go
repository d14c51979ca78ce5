package memory

import (
	"context"
	"slices"
	"sync"

	"sante/internal/dmp/models"
)

// EntryStore is an append-only, patient-partitioned list of one clinical
// entry kind.
type EntryStore[T models.Entry] struct {
	mu      sync.RWMutex
	entries map[string][]T
}

func NewEntryStore[T models.Entry]() *EntryStore[T] {
	return &EntryStore[T]{entries: make(map[string][]T)}
}

func (s *EntryStore[T]) Append(_ context.Context, entry T) error {
	patientID := entry.Meta().PatientID
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[patientID] = append(s.entries[patientID], entry)
	return nil
}

func (s *EntryStore[T]) ListByPatient(_ context.Context, patientID string) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries[patientID]), nil
}
