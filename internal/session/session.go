// Package session holds per-conversation mutable state: the "last booking"
// projection shown back to the user and the moderation violation counter.
// Everything is keyed by session id so concurrent conversations never see
// each other's state.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoLastBooking indicates the session has no booking projection yet.
var ErrNoLastBooking = errors.New("session: no last booking recorded")

// LastBooking is the projection of the most recent successful booking or
// reschedule in a session.
type LastBooking struct {
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Reason          string    `json:"reason"`
	Phone           string    `json:"phone,omitempty"`
	Email           string    `json:"email"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	CalendarEventID string    `json:"calendar_event_id,omitempty"`
}

// Store keeps session-scoped state. Implementations must be safe for
// concurrent use across sessions.
type Store interface {
	// SetLastBooking records the session's booking projection.
	SetLastBooking(ctx context.Context, sessionID string, lb *LastBooking) error

	// GetLastBooking returns the projection or ErrNoLastBooking.
	GetLastBooking(ctx context.Context, sessionID string) (*LastBooking, error)

	// IncrViolations bumps the moderation counter and returns the new value.
	// The counter only ever moves up within a session.
	IncrViolations(ctx context.Context, sessionID string) (int, error)

	// Violations returns the current counter without changing it.
	Violations(ctx context.Context, sessionID string) (int, error)

	// Reset clears all state for the session, including the counter.
	Reset(ctx context.Context, sessionID string) error
}
