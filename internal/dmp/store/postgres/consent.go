package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sante/internal/dmp/models"
	"sante/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// ConsentStore persists consents in the consents table.
type ConsentStore struct {
	db *sql.DB
}

func NewConsentStore(db *sql.DB) *ConsentStore {
	return &ConsentStore{db: db}
}

func (s *ConsentStore) Save(ctx context.Context, consent *models.Consent) error {
	query := `
		INSERT INTO consents (id, patient_id, professional_id, granted_at, revoked_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		consent.ID,
		consent.PatientID,
		consent.ProfessionalID,
		consent.GrantedAt,
		nullTime(consent.RevokedAt),
		nullTime(consent.ExpiresAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

const consentColumns = `id, patient_id, professional_id, granted_at, revoked_at, expires_at`

func (s *ConsentStore) ListByPatient(ctx context.Context, patientID string) ([]*models.Consent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+consentColumns+` FROM consents WHERE patient_id = $1 ORDER BY granted_at ASC, seq ASC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list consents by patient: %w", err)
	}
	return scanConsents(rows)
}

func (s *ConsentStore) ListByPair(ctx context.Context, patientID, professionalID string) ([]*models.Consent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+consentColumns+` FROM consents WHERE patient_id = $1 AND professional_id = $2 ORDER BY granted_at ASC, seq ASC`,
		patientID, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list consents by pair: %w", err)
	}
	return scanConsents(rows)
}

func (s *ConsentStore) Revoke(ctx context.Context, patientID string, consentID uuid.UUID, revokedAt time.Time) (*models.Consent, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE consents SET revoked_at = $3
		WHERE id = $1 AND patient_id = $2 AND revoked_at IS NULL
		RETURNING `+consentColumns, consentID, patientID, revokedAt)
	c, err := scanConsent(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revoke consent: %w", err)
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM consents WHERE id = $1 AND patient_id = $2)`,
		consentID, patientID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check consent: %w", err)
	}
	if exists {
		return nil, sentinel.ErrInvalidState
	}
	return nil, sentinel.ErrNotFound
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConsent(row scanner) (*models.Consent, error) {
	var c models.Consent
	var revokedAt, expiresAt sql.NullTime
	if err := row.Scan(&c.ID, &c.PatientID, &c.ProfessionalID, &c.GrantedAt, &revokedAt, &expiresAt); err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		c.RevokedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		c.ExpiresAt = &t
	}
	return &c, nil
}

func scanConsents(rows *sql.Rows) ([]*models.Consent, error) {
	defer rows.Close()
	var consents []*models.Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		consents = append(consents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return consents, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
