// Package schedule contains the date/time normalization and slot policy
// logic for the booking engine: turning free-form patient input into
// clinic-local instants, enforcing working hours, and searching for
// alternative slots around a rejected one.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SlotDuration is the fixed appointment length. Every slot in the system is
// exactly this long; it is not user-configurable.
const SlotDuration = 30 * time.Minute

// ErrInvalidDate indicates the date could not be parsed or is not in the future.
var ErrInvalidDate = errors.New("schedule: invalid appointment date")

// ErrInvalidTime indicates the time of day could not be parsed.
var ErrInvalidTime = errors.New("schedule: invalid appointment time")

// IST is the clinic's fixed offset (UTC+5:30), used when the configured
// timezone cannot be loaded.
var IST = time.FixedZone("IST", 5*3600+30*60)

// ClinicLocation returns the *time.Location for a clinic timezone string.
// Falls back to the fixed IST offset if the timezone is invalid or empty.
func ClinicLocation(timezone string) *time.Location {
	if timezone == "" {
		return IST
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return IST
	}
	return loc
}

// Normalizer converts free-form date and time text into canonical,
// clinic-local values. The now func is injectable so tests can pin "today".
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

// NewNormalizer creates a normalizer anchored to the clinic timezone.
func NewNormalizer(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = IST
	}
	return &Normalizer{loc: loc, now: time.Now}
}

// NewNormalizerAt creates a normalizer with a fixed clock, for tests.
func NewNormalizerAt(loc *time.Location, now func() time.Time) *Normalizer {
	n := NewNormalizer(loc)
	if now != nil {
		n.now = now
	}
	return n
}

// Location returns the clinic timezone the normalizer anchors to.
func (n *Normalizer) Location() *time.Location { return n.loc }

// Now returns the current clinic-local time.
func (n *Normalizer) Now() time.Time { return n.now().In(n.loc) }

var (
	ordinalRe   = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
	inDaysRe    = regexp.MustCompile(`^in (\d+) days?$`)
	nextDayRe   = regexp.MustCompile(`^next ([a-z]+)$`)
	yearRe      = regexp.MustCompile(`\b\d{4}\b`)
	timeRe      = regexp.MustCompile(`^(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?$`)
	noiseWordRe = regexp.MustCompile(`\b(at|around|about|oclock|o'clock)\b`)
)

// cleanInput lowercases, collapses ordinal suffixes ("1st" -> "1") and
// drops commas, mirroring what patients actually type.
func cleanInput(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(s), " ")
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tues":      time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thurs":     time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

// NormalizeDate resolves raw date text to a clinic-local calendar date
// (midnight). Relative phrases are tried first, in a fixed priority order;
// anything else falls through to layout-based parsing with day-before-month
// precedence. The result is always strictly after today: dates with no
// explicit year are pinned to the current year and rolled forward one year
// when they have already passed.
func (n *Normalizer) NormalizeDate(raw string) (time.Time, error) {
	s := cleanInput(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrInvalidDate)
	}

	today := n.dateOnly(n.Now())

	if d, ok := n.resolveRelative(s, today); ok {
		return n.requireFuture(d, today, raw)
	}

	d, err := n.parseAbsolute(s, today)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: could not parse %q", ErrInvalidDate, raw)
	}
	return n.requireFuture(d, today, raw)
}

// resolveRelative applies the relative-phrase rules in priority order:
// today, tomorrow, day after tomorrow, "in N days", "next <weekday>",
// bare weekday (next occurrence, never today).
func (n *Normalizer) resolveRelative(s string, today time.Time) (time.Time, bool) {
	switch s {
	case "today":
		return today, true
	case "tomorrow", "tomorow", "tommorow", "tmrw":
		return today.AddDate(0, 0, 1), true
	case "day after tomorrow", "day after tomorow", "day after tommorow", "overmorrow":
		return today.AddDate(0, 0, 2), true
	}

	if m := inDaysRe.FindStringSubmatch(s); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			return today.AddDate(0, 0, days), true
		}
	}

	if m := nextDayRe.FindStringSubmatch(s); m != nil {
		if wd, ok := weekdayNames[m[1]]; ok {
			return nextWeekday(today, wd), true
		}
	}

	if wd, ok := weekdayNames[s]; ok {
		return nextWeekday(today, wd), true
	}

	return time.Time{}, false
}

// nextWeekday returns the next occurrence of wd strictly after today: if
// today already is that weekday, the result is a week out.
func nextWeekday(today time.Time, wd time.Weekday) time.Time {
	days := int(wd-today.Weekday()+7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

// absoluteDateLayouts are tried in order. Day-first forms come before
// month-first so "5 3" style input resolves as day-month.
var absoluteDateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"02.01.2006",
	"2 January",
	"2 Jan",
	"January 2",
	"Jan 2",
	"02-01",
	"2-1",
	"02/01",
	"2/1",
}

// parseAbsolute parses non-relative date text. Dates without an explicit
// year (or landing before today) are pinned to the current year; if the
// pinned date is still on-or-before today it rolls forward exactly one
// year, so a bare "5 March" always means the next 5th of March.
func (n *Normalizer) parseAbsolute(s string, today time.Time) (time.Time, error) {
	var parsed time.Time
	var ok bool
	for _, layout := range absoluteDateLayouts {
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			parsed = t
			ok = true
			break
		}
	}
	if !ok {
		return time.Time{}, fmt.Errorf("no layout matched %q", s)
	}

	hasYear := yearRe.MatchString(s)
	candidate := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, n.loc)
	if !hasYear || candidate.Before(today) {
		candidate = time.Date(today.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, n.loc)
		if !candidate.After(today) {
			candidate = candidate.AddDate(1, 0, 0)
		}
	}
	return candidate, nil
}

// requireFuture rejects dates on-or-before today.
func (n *Normalizer) requireFuture(d, today time.Time, raw string) (time.Time, error) {
	if !d.After(today) {
		return time.Time{}, fmt.Errorf("%w: %q must be after today", ErrInvalidDate, raw)
	}
	return d, nil
}

// dateOnly truncates an instant to clinic-local midnight.
func (n *Normalizer) dateOnly(t time.Time) time.Time {
	t = t.In(n.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, n.loc)
}

// NormalizeTime resolves raw time-of-day text to canonical "HH:MM AM/PM".
// Accepts 12-hour forms ("9 AM", "9am", "10:30 AM"), 24-hour forms
// ("09:00", "15:30") and light noise ("at 4 pm"). Normalizing an already
// canonical value is a no-op.
func (n *Normalizer) NormalizeTime(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = noiseWordRe.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidTime)
	}

	switch s {
	case "noon", "midday":
		return "12:00 PM", nil
	case "midnight":
		return "12:00 AM", nil
	}

	m := timeRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: could not parse %q", ErrInvalidTime, raw)
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", fmt.Errorf("%w: could not parse %q", ErrInvalidTime, raw)
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return "", fmt.Errorf("%w: could not parse %q", ErrInvalidTime, raw)
		}
	}

	meridiem := strings.ReplaceAll(m[3], ".", "")
	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("%w: hour %d out of range", ErrInvalidTime, hour)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("%w: hour %d out of range", ErrInvalidTime, hour)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		// 24-hour input
		if hour > 23 {
			return "", fmt.Errorf("%w: hour %d out of range", ErrInvalidTime, hour)
		}
	}

	canonical := time.Date(2000, 1, 1, hour, minute, 0, 0, time.UTC)
	return canonical.Format("03:04 PM"), nil
}

// ResolveInterval anchors a normalized date and canonical time string in the
// clinic timezone and returns the half-open slot [start, start+SlotDuration).
func (n *Normalizer) ResolveInterval(date time.Time, canonicalTime string) (time.Time, time.Time, error) {
	tod, err := time.Parse("03:04 PM", canonicalTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q is not canonical", ErrInvalidTime, canonicalTime)
	}
	start := time.Date(date.Year(), date.Month(), date.Day(), tod.Hour(), tod.Minute(), 0, 0, n.loc)
	return start, start.Add(SlotDuration), nil
}
