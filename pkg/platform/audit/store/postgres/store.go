package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "sante/pkg/platform/audit"
)

// Store implements audit.Store on the audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, user_id, subject, action,
			decision, reason, actor_id, request_id, client_ip
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		event.UserID,
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.ActorID,
		event.RequestID,
		event.ClientIP,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectColumns = `category, timestamp, user_id, subject, action, decision, reason, actor_id, request_id, client_ip`

func (s *Store) ListByUser(ctx context.Context, userID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM audit_events WHERE user_id = $1 ORDER BY timestamp ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list audit events by user: %w", err)
	}
	return scanEvents(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM audit_events ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent audit events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	defer rows.Close()
	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		var category string
		if err := rows.Scan(&category, &e.Timestamp, &e.UserID, &e.Subject, &e.Action,
			&e.Decision, &e.Reason, &e.ActorID, &e.RequestID, &e.ClientIP); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
