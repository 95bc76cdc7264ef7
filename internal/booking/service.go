package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smileworks/dental-ai-platform/internal/calendar"
	"github.com/smileworks/dental-ai-platform/internal/schedule"
	"github.com/smileworks/dental-ai-platform/internal/session"
	"github.com/smileworks/dental-ai-platform/internal/store"
	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

var workflowTracer = otel.Tracer("dentalai.internal.booking")

// maxAlternatives bounds how many alternative slots are suggested when the
// requested one is taken.
const maxAlternatives = 3

// Workflow orchestrates booking operations: normalize, check policy and
// availability, create the calendar event, persist, and project the result
// into session state. One operation runs to completion per user turn; the
// availability check and the event creation are not atomic, so a concurrent
// booking can still take the slot in between. That window is accepted.
type Workflow struct {
	normalizer   *schedule.Normalizer
	availability schedule.Oracle
	finder       *schedule.Finder
	cal          calendar.Collaborator
	records      store.MetadataStore
	sessions     session.Store
	clinicName   string
	logger       *logging.Logger
	now          func() time.Time
}

// NewWorkflow wires the booking workflow with its collaborators.
func NewWorkflow(
	normalizer *schedule.Normalizer,
	availability schedule.Oracle,
	finder *schedule.Finder,
	cal calendar.Collaborator,
	records store.MetadataStore,
	sessions session.Store,
	clinicName string,
	logger *logging.Logger,
) *Workflow {
	if logger == nil {
		logger = logging.Default()
	}
	return &Workflow{
		normalizer:   normalizer,
		availability: availability,
		finder:       finder,
		cal:          cal,
		records:      records,
		sessions:     sessions,
		clinicName:   clinicName,
		logger:       logger,
		now:          normalizer.Now,
	}
}

// Book validates and books a new appointment. When the requested slot is
// taken it returns the nearest free alternatives rather than picking one.
func (w *Workflow) Book(ctx context.Context, sessionID string, appt Appointment) Result {
	ctx, span := workflowTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.user_id", appt.ContactEmail))

	if err := appt.Validate(); err != nil {
		return validationResult(err)
	}

	start, end, res := w.resolveSlot(appt.PreferredDate, appt.Time)
	if res != nil {
		return *res
	}

	free, err := w.availability.IsFree(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		w.logger.Error("availability check failed", "error", err)
		return errResult(err)
	}
	if !free {
		return w.unavailableResult(ctx, appt, start)
	}

	reason := appt.Reason
	if reason == "" {
		reason = "Dental appointment"
	}

	summary := fmt.Sprintf("Dental appointment - %s", reason)
	description := fmt.Sprintf("Patient: %s (user_id: %s)", appt.Name, appt.ContactEmail)
	eventID, err := w.cal.CreateEvent(ctx, summary, description, start, end)
	if err != nil {
		span.RecordError(err)
		w.logger.Error("calendar event creation failed", "error", err)
		return errResult(err)
	}

	stored := &StoredAppointment{
		ID:              uuid.NewString(),
		UserID:          appt.ContactEmail,
		PatientName:     appt.Name,
		Reason:          reason,
		StartTime:       start,
		EndTime:         end,
		CalendarEventID: eventID,
		Status:          AppointmentConfirmed,
	}
	if err := w.records.Upsert(ctx, appointmentToRecord(stored)); err != nil {
		span.RecordError(err)
		w.logger.Error("appointment persistence failed", "appointment_id", stored.ID, "error", err)
		return errResult(err)
	}

	if err := w.saveProfile(ctx, appt); err != nil {
		span.RecordError(err)
		w.logger.Error("profile persistence failed", "user_id", appt.ContactEmail, "error", err)
		return errResult(err)
	}

	w.projectLastBooking(ctx, sessionID, stored, appt.ContactPhone)

	w.logger.Info("appointment booked",
		"appointment_id", stored.ID,
		"user_id", stored.UserID,
		"start", stored.StartTime,
	)

	msg := fmt.Sprintf(
		"✅ Appointment booked!\nName: %s\nDate: %s\nTime: %s\nReason: %s\n\n"+
			"Your appointment at %s is confirmed for %s. See you then!",
		appt.Name, formatDate(start), start.Format("03:04 PM"), reason, w.clinicName, formatSlot(start),
	)
	return Result{Status: StatusConfirmed, Message: msg, Appointment: stored}
}

// CheckSlot is the read-only availability probe behind the check_slot tool.
func (w *Workflow) CheckSlot(ctx context.Context, rawDate, rawTime string) Result {
	ctx, span := workflowTracer.Start(ctx, "booking.check_slot")
	defer span.End()

	start, end, res := w.resolveSlot(rawDate, rawTime)
	if res != nil {
		return *res
	}

	free, err := w.availability.IsFree(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		return errResult(err)
	}
	if !free {
		return Result{
			Status:  StatusUnavailable,
			Message: fmt.Sprintf("The slot on %s is already taken. Please choose another time.", formatSlot(start)),
		}
	}
	return Result{
		Status:  StatusFound,
		Message: fmt.Sprintf("The slot on %s is available for booking.", formatSlot(start)),
	}
}

// Reschedule moves the user's nearest upcoming confirmed appointment to a
// new interval. Availability is deliberately not re-checked against other
// calendar events; the moved event keeps whatever the calendar allows.
func (w *Workflow) Reschedule(ctx context.Context, sessionID, email, newDate, newTime string) Result {
	ctx, span := workflowTracer.Start(ctx, "booking.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.user_id", email))

	existing, err := w.nearestUpcoming(ctx, email)
	if err != nil {
		span.RecordError(err)
		return errResult(err)
	}
	if existing == nil {
		return Result{
			Status: StatusNotFound,
			Message: "I couldn't find any upcoming confirmed appointment for that email. " +
				"Please confirm which appointment you want to change.",
		}
	}

	start, end, res := w.resolveSlot(newDate, newTime)
	if res != nil {
		return *res
	}

	oldStart := existing.StartTime
	existing.StartTime = start
	existing.EndTime = end

	if existing.CalendarEventID != "" {
		if _, err := w.cal.UpdateEvent(ctx, existing.CalendarEventID, start, end); err != nil {
			span.RecordError(err)
			w.logger.Error("calendar event move failed", "event_id", existing.CalendarEventID, "error", err)
			return errResult(err)
		}
	} else {
		summary := fmt.Sprintf("Dental appointment - %s", existing.Reason)
		description := fmt.Sprintf("Patient: %s (user_id: %s)", existing.PatientName, existing.UserID)
		eventID, err := w.cal.CreateEvent(ctx, summary, description, start, end)
		if err != nil {
			span.RecordError(err)
			return errResult(err)
		}
		existing.CalendarEventID = eventID
	}

	if err := w.records.Upsert(ctx, appointmentToRecord(existing)); err != nil {
		span.RecordError(err)
		return errResult(err)
	}

	w.projectLastBooking(ctx, sessionID, existing, "")

	w.logger.Info("appointment rescheduled",
		"appointment_id", existing.ID,
		"user_id", existing.UserID,
		"from", oldStart,
		"to", start,
	)

	msg := fmt.Sprintf(
		"✅ Your appointment has been rescheduled.\nPrevious: %s\nNew: %s\nReason: %s",
		formatSlot(oldStart), formatSlot(start), existing.Reason,
	)
	return Result{Status: StatusRescheduled, Message: msg, Appointment: existing}
}

// Cancel cancels the user's nearest upcoming confirmed appointment. The
// calendar delete is best-effort: a failure there is logged and swallowed
// so the local status transition still completes.
func (w *Workflow) Cancel(ctx context.Context, email string) Result {
	ctx, span := workflowTracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.user_id", email))

	existing, err := w.nearestUpcoming(ctx, email)
	if err != nil {
		span.RecordError(err)
		return errResult(err)
	}
	if existing == nil {
		return Result{
			Status:  StatusNotFound,
			Message: "I couldn't find any upcoming confirmed appointment for that email.",
		}
	}

	if existing.CalendarEventID != "" {
		if err := w.cal.DeleteEvent(ctx, existing.CalendarEventID); err != nil {
			w.logger.Warn("calendar event delete failed, cancelling anyway",
				"event_id", existing.CalendarEventID, "error", err)
		}
	}

	existing.Status = AppointmentCancelled
	if err := w.records.Upsert(ctx, appointmentToRecord(existing)); err != nil {
		span.RecordError(err)
		return errResult(err)
	}

	w.logger.Info("appointment cancelled", "appointment_id", existing.ID, "user_id", existing.UserID)

	msg := fmt.Sprintf(
		"Your appointment on %s has been cancelled. We hope to see you another time!",
		formatSlot(existing.StartTime),
	)
	return Result{Status: StatusCancelled, Message: msg, Appointment: existing}
}

// Lookup returns the user's nearest upcoming confirmed appointment without
// mutating anything.
func (w *Workflow) Lookup(ctx context.Context, email string) Result {
	ctx, span := workflowTracer.Start(ctx, "booking.lookup")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.user_id", email))

	existing, err := w.nearestUpcoming(ctx, email)
	if err != nil {
		span.RecordError(err)
		return errResult(err)
	}
	if existing == nil {
		return Result{
			Status:  StatusNotFound,
			Message: "I couldn't find any upcoming confirmed appointment for that email.",
		}
	}

	msg := fmt.Sprintf(
		"You have an appointment for %s on %s. Let me know if you'd like to reschedule or cancel it.",
		existing.Reason, formatSlot(existing.StartTime),
	)
	return Result{Status: StatusFound, Message: msg, Appointment: existing}
}

// UpdatePreferences merges the provided preference fields into the user's
// profile. Absent fields are never overwritten.
func (w *Workflow) UpdatePreferences(ctx context.Context, email string, patch PreferencePatch) Result {
	ctx, span := workflowTracer.Start(ctx, "booking.update_preferences")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.user_id", email))

	rec, err := w.records.Get(ctx, store.NamespaceUsers, userKey(email))
	if errors.Is(err, store.ErrNotFound) {
		return Result{
			Status:  StatusNotFound,
			Message: "I couldn't find a profile for that email. Preferences are saved after your first booking.",
		}
	}
	if err != nil {
		span.RecordError(err)
		return errResult(err)
	}

	profile := profileFromRecord(rec)
	profile.Preferences.Apply(patch, w.now())
	if err := w.records.Upsert(ctx, profileToRecord(profile)); err != nil {
		span.RecordError(err)
		return errResult(err)
	}

	w.logger.Info("preferences updated", "user_id", email)
	return Result{
		Status:      StatusUpdated,
		Message:     "Got it, I've noted your preferences for future visits.",
		Preferences: &profile.Preferences,
	}
}

// GetPreferences returns the stored preference bag for the user.
func (w *Workflow) GetPreferences(ctx context.Context, email string) Result {
	ctx, span := workflowTracer.Start(ctx, "booking.get_preferences")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.user_id", email))

	rec, err := w.records.Get(ctx, store.NamespaceUsers, userKey(email))
	if errors.Is(err, store.ErrNotFound) {
		return Result{
			Status:  StatusNotFound,
			Message: "I couldn't find a profile for that email yet.",
		}
	}
	if err != nil {
		span.RecordError(err)
		return errResult(err)
	}

	profile := profileFromRecord(rec)
	if profile.Preferences.IsZero() {
		return Result{
			Status:  StatusNoPreferences,
			Message: "You haven't told me any preferences yet. Feel free to share how you like your visits.",
		}
	}
	return Result{
		Status:      StatusFound,
		Message:     "Here are the preferences I have on file for you.",
		Preferences: &profile.Preferences,
	}
}

// resolveSlot normalizes raw date/time text into a clinic-local slot. A
// non-nil Result means normalization or the hours policy rejected it.
func (w *Workflow) resolveSlot(rawDate, rawTime string) (time.Time, time.Time, *Result) {
	date, err := w.normalizer.NormalizeDate(rawDate)
	if err != nil {
		res := validationResult(err)
		return time.Time{}, time.Time{}, &res
	}
	canonical, err := w.normalizer.NormalizeTime(rawTime)
	if err != nil {
		res := validationResult(err)
		return time.Time{}, time.Time{}, &res
	}
	start, end, err := w.normalizer.ResolveInterval(date, canonical)
	if err != nil {
		res := validationResult(err)
		return time.Time{}, time.Time{}, &res
	}
	if !schedule.SlotWithinHours(start, end) {
		res := outsideHoursResult()
		return time.Time{}, time.Time{}, &res
	}
	return start, end, nil
}

// unavailableResult builds the busy-slot reply, including up to
// maxAlternatives nearby free slots in scan order.
func (w *Workflow) unavailableResult(ctx context.Context, appt Appointment, start time.Time) Result {
	alternatives := w.finder.FindAlternatives(ctx, start, schedule.SlotDuration, maxAlternatives)

	if len(alternatives) == 0 {
		return Result{
			Status: StatusUnavailable,
			Message: fmt.Sprintf(
				"❌ Sorry %s, the slot on %s is already booked and I couldn't find nearby free slots. "+
					"Would you like to try a different time or date?",
				appt.Name, formatSlot(start),
			),
		}
	}

	return Result{
		Status: StatusUnavailable,
		Message: fmt.Sprintf(
			"❌ Sorry %s, the slot on %s is already booked. The nearest available times are:\n%s\n"+
				"Would any of these work for you?",
			appt.Name, formatSlot(start), formatAlternatives(alternatives),
		),
		Alternatives: alternatives,
	}
}

// nearestUpcoming is the single source of truth for "the user's active
// appointment": all confirmed records for the user with start >= now,
// soonest first. Returns nil when there is none.
func (w *Workflow) nearestUpcoming(ctx context.Context, email string) (*StoredAppointment, error) {
	recs, err := w.records.Query(ctx, store.NamespaceAppointments, store.Filter{
		"user_id": email,
		"status":  string(AppointmentConfirmed),
	})
	if err != nil {
		return nil, fmt.Errorf("booking: query appointments for %s: %w", email, err)
	}

	now := w.now()
	var upcoming []*StoredAppointment
	for _, rec := range recs {
		a, err := appointmentFromRecord(rec)
		if err != nil {
			w.logger.Warn("skipping unreadable appointment record", "key", rec.Key, "error", err)
			continue
		}
		if a.StartTime.Before(now) {
			continue
		}
		upcoming = append(upcoming, a)
	}
	if len(upcoming) == 0 {
		return nil, nil
	}

	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].StartTime.Before(upcoming[j].StartTime)
	})
	return upcoming[0], nil
}

// saveProfile creates or merge-updates the user profile tied to a booking.
func (w *Workflow) saveProfile(ctx context.Context, appt Appointment) error {
	profile := &UserProfile{UserID: appt.ContactEmail, Email: appt.ContactEmail}

	rec, err := w.records.Get(ctx, store.NamespaceUsers, userKey(appt.ContactEmail))
	if err == nil {
		profile = profileFromRecord(rec)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if appt.Name != "" {
		profile.Name = appt.Name
	}
	if appt.ContactPhone != "" {
		profile.Phone = appt.ContactPhone
	}
	if appt.PreferencePatch != nil && !appt.PreferencePatch.IsZero() {
		profile.Preferences.Apply(*appt.PreferencePatch, w.now())
	}

	return w.records.Upsert(ctx, profileToRecord(profile))
}

// projectLastBooking records the session's last-booking view. Failures are
// logged, never surfaced: the booking itself already succeeded.
func (w *Workflow) projectLastBooking(ctx context.Context, sessionID string, a *StoredAppointment, phone string) {
	if w.sessions == nil || sessionID == "" {
		return
	}
	lb := &session.LastBooking{
		UserID:          a.UserID,
		Name:            a.PatientName,
		Date:            formatDate(a.StartTime),
		Time:            a.StartTime.Format("03:04 PM"),
		Reason:          a.Reason,
		Phone:           phone,
		Email:           a.UserID,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		CalendarEventID: a.CalendarEventID,
	}
	if err := w.sessions.SetLastBooking(ctx, sessionID, lb); err != nil {
		w.logger.Warn("failed to record last booking projection", "session_id", sessionID, "error", err)
	}
}
