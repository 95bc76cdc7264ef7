package schedule

import "time"

// Clinic working hours, in clinic-local hours of the day. Bookings are
// allowed in [OpenHour, CloseHour) excluding the lunch break
// [LunchStartHour, LunchEndHour).
const (
	OpenHour       = 9
	LunchStartHour = 13
	LunchEndHour   = 14
	CloseHour      = 18
)

// WithinHours reports whether the instant falls inside clinic open hours
// and outside the lunch break. Boundaries are half-open: 09:00 is in,
// 13:00 and 18:00 are out.
func WithinHours(t time.Time) bool {
	h := t.Hour()
	if h < OpenHour || h >= CloseHour {
		return false
	}
	if h >= LunchStartHour && h < LunchEndHour {
		return false
	}
	return true
}

// SlotWithinHours reports whether both endpoints of a slot satisfy
// WithinHours. A slot may not straddle the lunch break or closing time.
func SlotWithinHours(start, end time.Time) bool {
	return WithinHours(start) && WithinHours(end)
}
