package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileworks/dental-ai-platform/internal/calendar"
	"github.com/smileworks/dental-ai-platform/internal/schedule"
	"github.com/smileworks/dental-ai-platform/internal/session"
	"github.com/smileworks/dental-ai-platform/internal/store"
	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

// fakeCalendar is an in-memory Collaborator that serves availability from
// the events it has created.
type fakeCalendar struct {
	events    map[string]calendar.Event
	nextID    int
	createErr error
	deleteErr error
	deleted   []string
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: map[string]calendar.Event{}}
}

func (f *fakeCalendar) ListEvents(_ context.Context, timeMin, timeMax time.Time) ([]calendar.Event, error) {
	var out []calendar.Event
	for _, ev := range f.events {
		if ev.AllDay() {
			out = append(out, ev)
			continue
		}
		if ev.Start.Before(timeMax) && ev.End.After(timeMin) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, summary, _ string, start, end time.Time) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	f.events[id] = calendar.Event{ID: id, Summary: summary, Start: &start, End: &end}
	return id, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, eventID string, start, end time.Time) (string, error) {
	ev, ok := f.events[eventID]
	if !ok {
		return "", fmt.Errorf("no such event %s", eventID)
	}
	ev.Start, ev.End = &start, &end
	f.events[eventID] = ev
	return eventID, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, eventID string) error {
	f.deleted = append(f.deleted, eventID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.events, eventID)
	return nil
}

type workflowFixture struct {
	wf       *Workflow
	cal      *fakeCalendar
	records  *store.MemoryStore
	sessions *session.MemoryStore
}

// Wednesday 20 Aug 2025, 10:00 IST.
var testNow = time.Date(2025, 8, 20, 10, 0, 0, 0, schedule.IST)

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	logger := logging.New("error")
	now := func() time.Time { return testNow }

	cal := newFakeCalendar()
	availability := calendar.NewAvailability(cal)
	records := store.NewMemoryStore()
	sessions := session.NewMemoryStore()

	normalizer := schedule.NewNormalizerAt(schedule.IST, now)
	finder := schedule.NewFinderAt(availability, logger, now)
	wf := NewWorkflow(normalizer, availability, finder, cal, records, sessions, "Smileworks Dental", logger)
	return &workflowFixture{wf: wf, cal: cal, records: records, sessions: sessions}
}

func validRequest() Appointment {
	return Appointment{
		Name:          "Asha Rao",
		PreferredDate: "tomorrow",
		Time:          "10:30 AM",
		Reason:        "Tooth cleaning",
		ContactEmail:  "asha@example.com",
		ContactPhone:  "9876543210",
	}
}

func TestBookConfirmsFreeSlot(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	res := fx.wf.Book(ctx, "sess-1", validRequest())
	require.Equal(t, StatusConfirmed, res.Status)
	require.NotNil(t, res.Appointment)
	assert.Equal(t, "asha@example.com", res.Appointment.UserID)
	assert.Equal(t, AppointmentConfirmed, res.Appointment.Status)
	assert.Contains(t, res.Message, "21-08-2025")
	assert.Contains(t, res.Message, "10:30 AM")

	wantStart := time.Date(2025, 8, 21, 10, 30, 0, 0, schedule.IST)
	assert.True(t, res.Appointment.StartTime.Equal(wantStart))
	assert.True(t, res.Appointment.EndTime.Equal(wantStart.Add(schedule.SlotDuration)))

	// Calendar holds the event, records hold the appointment and profile.
	assert.Len(t, fx.cal.events, 1)
	rec, err := fx.records.Get(ctx, store.NamespaceUsers, userKey("asha@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", rec.Fields["name"])

	// Session projection best-effort recorded.
	lb, err := fx.sessions.GetLastBooking(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "21-08-2025", lb.Date)
	assert.Equal(t, "10:30 AM", lb.Time)
}

func TestBookBusySlotSuggestsAlternatives(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	first := fx.wf.Book(ctx, "sess-1", validRequest())
	require.Equal(t, StatusConfirmed, first.Status)

	second := validRequest()
	second.Name = "Ravi Iyer"
	second.ContactEmail = "ravi@example.com"
	res := fx.wf.Book(ctx, "sess-2", second)

	require.Equal(t, StatusUnavailable, res.Status)
	require.Len(t, res.Alternatives, 3)
	assert.Contains(t, res.Message, "already booked")

	// Scan order around 10:30: -1h, -30m, then forward past the taken slot.
	day := time.Date(2025, 8, 21, 0, 0, 0, 0, schedule.IST)
	assert.True(t, res.Alternatives[0].Start.Equal(day.Add(9*time.Hour+30*time.Minute)))
	assert.True(t, res.Alternatives[1].Start.Equal(day.Add(10*time.Hour)))
	assert.True(t, res.Alternatives[2].Start.Equal(day.Add(11*time.Hour)))

	// No event was created for the rejected booking.
	assert.Len(t, fx.cal.events, 1)
}

func TestBookRejectsOutsideHours(t *testing.T) {
	fx := newWorkflowFixture(t)

	cases := []string{"8:30 AM", "1:30 PM", "6:00 PM"}
	for _, tc := range cases {
		req := validRequest()
		req.Time = tc
		res := fx.wf.Book(context.Background(), "sess-1", req)
		assert.Equal(t, StatusOutsideHours, res.Status, "time %s", tc)
	}
	assert.Empty(t, fx.cal.events)
}

func TestBookRejectsInvalidInput(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	noName := validRequest()
	noName.Name = "  "
	assert.Equal(t, StatusError, fx.wf.Book(ctx, "s", noName).Status)

	badEmail := validRequest()
	badEmail.ContactEmail = "not-an-email"
	assert.Equal(t, StatusError, fx.wf.Book(ctx, "s", badEmail).Status)

	badPhone := validRequest()
	badPhone.ContactPhone = "12345"
	assert.Equal(t, StatusError, fx.wf.Book(ctx, "s", badPhone).Status)

	badDate := validRequest()
	badDate.PreferredDate = "someday soon"
	assert.Equal(t, StatusError, fx.wf.Book(ctx, "s", badDate).Status)

	assert.Empty(t, fx.cal.events)
}

func TestCheckSlot(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	res := fx.wf.CheckSlot(ctx, "tomorrow", "10:30 AM")
	assert.Equal(t, StatusFound, res.Status)

	require.Equal(t, StatusConfirmed, fx.wf.Book(ctx, "s", validRequest()).Status)

	res = fx.wf.CheckSlot(ctx, "tomorrow", "10:30 AM")
	assert.Equal(t, StatusUnavailable, res.Status)
	assert.Empty(t, res.Alternatives, "check_slot never suggests alternatives")
}

func TestRescheduleMovesNearestUpcoming(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	require.Equal(t, StatusConfirmed, fx.wf.Book(ctx, "sess-1", validRequest()).Status)

	res := fx.wf.Reschedule(ctx, "sess-1", "asha@example.com", "friday", "3:00 PM")
	require.Equal(t, StatusRescheduled, res.Status)
	assert.Contains(t, res.Message, "Previous: 21-08-2025 at 10:30 AM")
	assert.Contains(t, res.Message, "New: 22-08-2025 at 03:00 PM")

	wantStart := time.Date(2025, 8, 22, 15, 0, 0, 0, schedule.IST)
	assert.True(t, res.Appointment.StartTime.Equal(wantStart))

	// The calendar event moved rather than being recreated.
	require.Len(t, fx.cal.events, 1)
	for _, ev := range fx.cal.events {
		assert.True(t, ev.Start.Equal(wantStart))
	}

	// Lookup now reflects the new slot.
	lookup := fx.wf.Lookup(ctx, "asha@example.com")
	require.Equal(t, StatusFound, lookup.Status)
	assert.True(t, lookup.Appointment.StartTime.Equal(wantStart))
}

func TestRescheduleWithoutAppointment(t *testing.T) {
	fx := newWorkflowFixture(t)

	res := fx.wf.Reschedule(context.Background(), "sess-1", "nobody@example.com", "friday", "3:00 PM")
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Empty(t, fx.cal.events)
}

func TestRescheduleDoesNotRecheckAvailability(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	require.Equal(t, StatusConfirmed, fx.wf.Book(ctx, "sess-1", validRequest()).Status)

	other := validRequest()
	other.Time = "11:00 AM"
	other.ContactEmail = "ravi@example.com"
	require.Equal(t, StatusConfirmed, fx.wf.Book(ctx, "sess-2", other).Status)

	// Moving onto the other patient's slot still succeeds.
	res := fx.wf.Reschedule(ctx, "sess-1", "asha@example.com", "tomorrow", "11:00 AM")
	assert.Equal(t, StatusRescheduled, res.Status)
}

func TestCancelThenLookup(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	require.Equal(t, StatusConfirmed, fx.wf.Book(ctx, "sess-1", validRequest()).Status)

	res := fx.wf.Cancel(ctx, "asha@example.com")
	require.Equal(t, StatusCancelled, res.Status)
	assert.Equal(t, AppointmentCancelled, res.Appointment.Status)
	assert.Empty(t, fx.cal.events)

	// Cancelled appointments are invisible to lookup and a second cancel.
	assert.Equal(t, StatusNotFound, fx.wf.Lookup(ctx, "asha@example.com").Status)
	assert.Equal(t, StatusNotFound, fx.wf.Cancel(ctx, "asha@example.com").Status)
}

func TestCancelSurvivesCalendarDeleteFailure(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	require.Equal(t, StatusConfirmed, fx.wf.Book(ctx, "sess-1", validRequest()).Status)
	fx.cal.deleteErr = fmt.Errorf("backend down")

	res := fx.wf.Cancel(ctx, "asha@example.com")
	require.Equal(t, StatusCancelled, res.Status)
	assert.Len(t, fx.cal.deleted, 1)

	// The local record still flipped to cancelled.
	assert.Equal(t, StatusNotFound, fx.wf.Lookup(ctx, "asha@example.com").Status)
}

func TestNearestUpcomingPicksSoonest(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	later := validRequest()
	later.PreferredDate = "in 5 days"
	require.Equal(t, StatusConfirmed, fx.wf.Book(ctx, "s", later).Status)

	sooner := validRequest()
	sooner.PreferredDate = "tomorrow"
	sooner.Time = "4:00 PM"
	require.Equal(t, StatusConfirmed, fx.wf.Book(ctx, "s", sooner).Status)

	res := fx.wf.Lookup(ctx, "asha@example.com")
	require.Equal(t, StatusFound, res.Status)
	wantStart := time.Date(2025, 8, 21, 16, 0, 0, 0, schedule.IST)
	assert.True(t, res.Appointment.StartTime.Equal(wantStart))
}

func TestPreferencesLifecycle(t *testing.T) {
	fx := newWorkflowFixture(t)
	ctx := context.Background()

	// No profile yet.
	assert.Equal(t, StatusNotFound, fx.wf.GetPreferences(ctx, "asha@example.com").Status)
	assert.Equal(t, StatusNotFound, fx.wf.UpdatePreferences(ctx, "asha@example.com", PreferencePatch{}).Status)

	require.Equal(t, StatusConfirmed, fx.wf.Book(ctx, "sess-1", validRequest()).Status)

	// Profile exists but holds no preferences.
	assert.Equal(t, StatusNoPreferences, fx.wf.GetPreferences(ctx, "asha@example.com").Status)

	anxiety := true
	dentist := "Dr. Mehta"
	res := fx.wf.UpdatePreferences(ctx, "asha@example.com", PreferencePatch{
		DentalAnxiety:    &anxiety,
		PreferredDentist: &dentist,
		PreferredTimes:   []string{"morning"},
	})
	require.Equal(t, StatusUpdated, res.Status)

	// A later partial patch keeps earlier fields.
	brief := true
	res = fx.wf.UpdatePreferences(ctx, "asha@example.com", PreferencePatch{PrefersBriefResponses: &brief})
	require.Equal(t, StatusUpdated, res.Status)

	got := fx.wf.GetPreferences(ctx, "asha@example.com")
	require.Equal(t, StatusFound, got.Status)
	require.NotNil(t, got.Preferences)
	assert.Equal(t, "Dr. Mehta", got.Preferences.PreferredDentist)
	assert.Equal(t, []string{"morning"}, got.Preferences.PreferredTimes)
	require.NotNil(t, got.Preferences.DentalAnxiety)
	assert.True(t, *got.Preferences.DentalAnxiety)
	require.NotNil(t, got.Preferences.PrefersBriefResponses)
	assert.True(t, *got.Preferences.PrefersBriefResponses)
}

func TestAppointmentRecordRoundTrip(t *testing.T) {
	start := time.Date(2025, 8, 21, 10, 30, 0, 0, schedule.IST)
	a := &StoredAppointment{
		ID:              "abc",
		UserID:          "asha@example.com",
		PatientName:     "Asha Rao",
		Reason:          "Tooth cleaning",
		StartTime:       start,
		EndTime:         start.Add(schedule.SlotDuration),
		CalendarEventID: "evt-1",
		Status:          AppointmentConfirmed,
	}

	got, err := appointmentFromRecord(appointmentToRecord(a))
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Status, got.Status)
	assert.True(t, got.StartTime.Equal(a.StartTime))
	assert.True(t, got.EndTime.Equal(a.EndTime))
}
