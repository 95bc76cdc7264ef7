// Package history keeps an append-only Postgres log of dispatched
// operations for clinic audit and support. The log is strictly optional:
// a nil *Log is a no-op, so the assistant runs unchanged without a
// database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is one logged operation outcome.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id,omitempty"`
	Operation string          `json:"operation"`
	Status    string          `json:"status"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Log writes operation events to Postgres.
type Log struct {
	db *sql.DB
}

// NewLog creates an operation log over the given database handle.
func NewLog(db *sql.DB) *Log {
	return &Log{db: db}
}

// Record appends one event. Missing id and timestamp are filled in.
func (l *Log) Record(ctx context.Context, ev Event) error {
	if l == nil || l.db == nil {
		return nil
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO operation_events (
			id, session_id, user_id, operation, status, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := l.db.ExecContext(ctx, query,
		ev.ID,
		ev.SessionID,
		nullString(ev.UserID),
		ev.Operation,
		ev.Status,
		nullDetail(ev.Detail),
		ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("history: failed to record event: %w", err)
	}
	return nil
}

// RecentBySession returns up to limit events for the session, newest first.
func (l *Log) RecentBySession(ctx context.Context, sessionID string, limit int) ([]Event, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, user_id, operation, status, detail, created_at
		FROM operation_events
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := l.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var userID sql.NullString
		var detail []byte
		if err := rows.Scan(&ev.ID, &ev.SessionID, &userID, &ev.Operation, &ev.Status, &detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: failed to scan event: %w", err)
		}
		ev.UserID = userID.String
		if len(detail) > 0 {
			ev.Detail = json.RawMessage(detail)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: failed to read events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullDetail maps an empty detail to a SQL NULL, matching what drivers
// already do for a nil byte slice.
func nullDetail(d json.RawMessage) any {
	if len(d) == 0 {
		return nil
	}
	return []byte(d)
}
