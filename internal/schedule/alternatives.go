package schedule

import (
	"context"
	"time"

	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

// Oracle reports whether a half-open time interval is free on the clinic
// calendar. Implemented by calendar.Availability.
type Oracle interface {
	IsFree(ctx context.Context, start, end time.Time) (bool, error)
}

// Slot is a half-open candidate interval [Start, End).
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// alternativeOffsets is the fixed candidate scan order around a rejected
// slot, in multiples of the slot duration. Offset 0 (the rejected slot
// itself) is deliberately absent. Callers rely on this exact order when
// presenting suggestions.
var alternativeOffsets = []int{-2, -1, 1, 2, 3, 4, 5, 6, 7, 8}

// Finder searches for free alternative slots near a rejected one.
type Finder struct {
	oracle Oracle
	now    func() time.Time
	logger *logging.Logger
}

// NewFinder creates an alternative-slot finder.
func NewFinder(oracle Oracle, logger *logging.Logger) *Finder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Finder{oracle: oracle, now: time.Now, logger: logger}
}

// NewFinderAt creates a finder with a fixed clock, for tests.
func NewFinderAt(oracle Oracle, logger *logging.Logger, now func() time.Time) *Finder {
	f := NewFinder(oracle, logger)
	if now != nil {
		f.now = now
	}
	return f
}

// FindAlternatives scans candidates at the fixed offsets around the
// requested start, skipping anything in the past or outside working hours,
// and returns up to maxResults free slots in scan order. A failed
// availability check skips that one candidate; the search keeps going.
func (f *Finder) FindAlternatives(ctx context.Context, requestedStart time.Time, duration time.Duration, maxResults int) []Slot {
	if maxResults <= 0 {
		return nil
	}
	now := f.now()

	var found []Slot
	for _, offset := range alternativeOffsets {
		start := requestedStart.Add(time.Duration(offset) * duration)
		end := start.Add(duration)

		if start.Before(now) {
			continue
		}
		if !SlotWithinHours(start, end) {
			continue
		}

		free, err := f.oracle.IsFree(ctx, start, end)
		if err != nil {
			f.logger.Warn("alternative slot check failed, skipping candidate",
				"start", start, "error", err)
			continue
		}
		if !free {
			continue
		}

		found = append(found, Slot{Start: start, End: end})
		if len(found) >= maxResults {
			break
		}
	}
	return found
}
