// Package calendar wraps the clinic's external event calendar. The booking
// workflow only ever talks to the Collaborator interface; the concrete
// implementation is Google Calendar.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the calendar backend could not be reached or
// returned an error. Callers must never treat this as "slot is free".
var ErrUnavailable = errors.New("calendar: backend unavailable")

// Event is a calendar entry. Start/End are nil for all-day entries, which
// never block a slot.
type Event struct {
	ID      string
	Summary string
	Start   *time.Time
	End     *time.Time
}

// AllDay reports whether the event has no time-of-day component.
func (e Event) AllDay() bool {
	return e.Start == nil || e.End == nil
}

// Collaborator is the external calendar consumed by the booking workflow.
type Collaborator interface {
	// ListEvents returns events overlapping [timeMin, timeMax).
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error)

	// CreateEvent creates a time-bounded event and returns its id.
	CreateEvent(ctx context.Context, summary, description string, start, end time.Time) (string, error)

	// UpdateEvent moves an existing event to a new interval.
	UpdateEvent(ctx context.Context, eventID string, start, end time.Time) (string, error)

	// DeleteEvent removes an event. Deleting an already-missing event is
	// not an error.
	DeleteEvent(ctx context.Context, eventID string) error
}
