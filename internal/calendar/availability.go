package calendar

import (
	"context"
	"fmt"
	"time"
)

// Availability answers "is this slot free?" against the clinic calendar.
// Only time-bounded events block a slot; all-day entries are ignored.
//
// This is a read-then-act check: a concurrent booking can still land
// between IsFree returning true and the event being created. That race is
// an accepted part of the consistency model, not something this type hides.
type Availability struct {
	cal Collaborator
}

// NewAvailability creates an availability checker over the given calendar.
func NewAvailability(cal Collaborator) *Availability {
	return &Availability{cal: cal}
}

// IsFree reports whether no time-bounded event overlaps [start, end).
// A calendar failure is surfaced as ErrUnavailable, never as "free".
func (a *Availability) IsFree(ctx context.Context, start, end time.Time) (bool, error) {
	events, err := a.cal.ListEvents(ctx, start, end)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for _, ev := range events {
		if ev.AllDay() {
			continue
		}
		return false, nil
	}
	return true, nil
}
