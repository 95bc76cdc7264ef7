// Package booking implements the appointment booking workflow: validation,
// availability checks, calendar event management, persistence, and the
// reschedule / cancel / lookup / preference operations a conversational
// front end drives through named tool calls.
package booking

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status is the outcome of a workflow operation, relayed verbatim to the
// dispatcher.
type Status string

const (
	StatusConfirmed     Status = "confirmed"
	StatusUnavailable   Status = "unavailable"
	StatusOutsideHours  Status = "outside_hours"
	StatusRescheduled   Status = "rescheduled"
	StatusCancelled     Status = "cancelled"
	StatusFound         Status = "found"
	StatusNotFound      Status = "not_found"
	StatusNoPreferences Status = "no_preferences"
	StatusUpdated       Status = "updated"
	StatusError         Status = "error"
)

// AppointmentStatus is the lifecycle state of a persisted appointment.
// Cancellation is a status transition, never a delete.
type AppointmentStatus string

const (
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// 10-digit mobile number starting 6-9.
	phoneRe = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// Appointment is the booking request collected by the conversational front
// end. Date and time arrive as raw natural-language text.
type Appointment struct {
	Name            string           `json:"name"`
	PreferredDate   string           `json:"preferred_date"`
	Time            string           `json:"time"`
	Reason          string           `json:"reason"`
	ContactEmail    string           `json:"contact_email"`
	ContactPhone    string           `json:"contact_phone"`
	PreferencePatch *PreferencePatch `json:"preferences,omitempty"`
}

// Validate checks the fields that must be well-formed before any external
// call is attempted. Date and time are validated separately by the
// normalizer.
func (a *Appointment) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("booking: patient name is required")
	}
	if !emailRe.MatchString(a.ContactEmail) {
		return fmt.Errorf("booking: %q is not a valid email address", a.ContactEmail)
	}
	if a.ContactPhone != "" && !phoneRe.MatchString(a.ContactPhone) {
		return fmt.Errorf("booking: %q is not a valid 10-digit mobile number", a.ContactPhone)
	}
	return nil
}

// StoredAppointment is the persisted appointment entity.
type StoredAppointment struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	PatientName     string            `json:"patient_name"`
	Reason          string            `json:"reason"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	CalendarEventID string            `json:"calendar_event_id,omitempty"`
	Status          AppointmentStatus `json:"status"`
}

// Preferences is the long-term personalization bag stored per user.
// Pointer fields distinguish "never stated" from an explicit false.
type Preferences struct {
	PreferredTimes        []string  `json:"preferred_times,omitempty"`
	PreferredDentist      string    `json:"preferred_dentist,omitempty"`
	InsuranceProvider     string    `json:"insurance_provider,omitempty"`
	DentalAnxiety         *bool     `json:"dental_anxiety,omitempty"`
	PrefersBriefResponses *bool     `json:"prefers_brief_responses,omitempty"`
	PrefersEmojis         *bool     `json:"prefers_emojis,omitempty"`
	Tone                  string    `json:"tone,omitempty"`
	LastUpdated           time.Time `json:"last_updated,omitempty"`
}

// IsZero reports whether the user has never stated any preference.
func (p Preferences) IsZero() bool {
	return len(p.PreferredTimes) == 0 &&
		p.PreferredDentist == "" &&
		p.InsuranceProvider == "" &&
		p.DentalAnxiety == nil &&
		p.PrefersBriefResponses == nil &&
		p.PrefersEmojis == nil &&
		p.Tone == ""
}

// PreferencePatch is a partial preference update. Nil fields mean "not
// provided" and leave the stored value untouched; the merge never erases.
type PreferencePatch struct {
	PreferredTimes        []string `json:"preferred_times,omitempty"`
	PreferredDentist      *string  `json:"preferred_dentist,omitempty"`
	InsuranceProvider     *string  `json:"insurance_provider,omitempty"`
	DentalAnxiety         *bool    `json:"dental_anxiety,omitempty"`
	PrefersBriefResponses *bool    `json:"prefers_brief_responses,omitempty"`
	PrefersEmojis         *bool    `json:"prefers_emojis,omitempty"`
	Tone                  *string  `json:"tone,omitempty"`
}

// IsZero reports whether the patch provides nothing.
func (p PreferencePatch) IsZero() bool {
	return len(p.PreferredTimes) == 0 &&
		p.PreferredDentist == nil &&
		p.InsuranceProvider == nil &&
		p.DentalAnxiety == nil &&
		p.PrefersBriefResponses == nil &&
		p.PrefersEmojis == nil &&
		p.Tone == nil
}

// Apply merges provided patch fields into the preferences and stamps
// LastUpdated. Absent fields keep their stored values.
func (p *Preferences) Apply(patch PreferencePatch, now time.Time) {
	if len(patch.PreferredTimes) > 0 {
		p.PreferredTimes = patch.PreferredTimes
	}
	if patch.PreferredDentist != nil {
		p.PreferredDentist = *patch.PreferredDentist
	}
	if patch.InsuranceProvider != nil {
		p.InsuranceProvider = *patch.InsuranceProvider
	}
	if patch.DentalAnxiety != nil {
		p.DentalAnxiety = patch.DentalAnxiety
	}
	if patch.PrefersBriefResponses != nil {
		p.PrefersBriefResponses = patch.PrefersBriefResponses
	}
	if patch.PrefersEmojis != nil {
		p.PrefersEmojis = patch.PrefersEmojis
	}
	if patch.Tone != nil {
		p.Tone = *patch.Tone
	}
	p.LastUpdated = now
}

// UserProfile is the persisted user record. The user id is the contact
// email; appointments reference it by value.
type UserProfile struct {
	UserID      string      `json:"user_id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone,omitempty"`
	Preferences Preferences `json:"preferences"`
}
