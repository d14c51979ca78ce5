package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sante/internal/dmp/models"
	"sante/pkg/platform/sentinel"
)

// EntryStore keeps one clinical entry kind in the shared clinical_entries
// table. The full entry is stored as a JSONB payload; the indexed columns
// duplicate its metadata.
type EntryStore[T models.Entry] struct {
	db *sql.DB
}

func NewEntryStore[T models.Entry](db *sql.DB) *EntryStore[T] {
	return &EntryStore[T]{db: db}
}

func (s *EntryStore[T]) kind() models.EntryKind {
	var zero T
	return zero.Kind()
}

func (s *EntryStore[T]) Append(ctx context.Context, entry T) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.kind(), err)
	}
	meta := entry.Meta()
	query := `
		INSERT INTO clinical_entries (id, kind, patient_id, author_id, occurred_at, created_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.db.ExecContext(ctx, query,
		meta.ID,
		string(s.kind()),
		meta.PatientID,
		meta.AuthorID,
		entry.OccurredAt(),
		meta.CreatedAt,
		payload,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert %s: %w", s.kind(), err)
	}
	return nil
}

func (s *EntryStore[T]) ListByPatient(ctx context.Context, patientID string) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM clinical_entries
		WHERE patient_id = $1 AND kind = $2
		ORDER BY occurred_at DESC`, patientID, string(s.kind()))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind(), err)
	}
	defer rows.Close()

	var entries []T
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.kind(), err)
		}
		var entry T
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.kind(), err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.kind(), err)
	}
	return entries, nil
}
