package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smileworks/dental-ai-platform/internal/store"
)

// Record codecs between workflow entities and the metadata store. All
// structured data lives in the record's string fields; instants are
// RFC3339.

func appointmentKey(id string) string { return "appt-" + id }
func userKey(userID string) string    { return "user-" + userID }

func appointmentToRecord(a *StoredAppointment) store.Record {
	return store.Record{
		Namespace: store.NamespaceAppointments,
		Key:       appointmentKey(a.ID),
		Fields: map[string]string{
			"type":              "appointment",
			"id":                a.ID,
			"user_id":           a.UserID,
			"patient_name":      a.PatientName,
			"reason":            a.Reason,
			"start_time":        a.StartTime.Format(time.RFC3339),
			"end_time":          a.EndTime.Format(time.RFC3339),
			"calendar_event_id": a.CalendarEventID,
			"status":            string(a.Status),
		},
	}
}

func appointmentFromRecord(rec store.Record) (*StoredAppointment, error) {
	f := rec.Fields
	start, err := time.Parse(time.RFC3339, f["start_time"])
	if err != nil {
		return nil, fmt.Errorf("booking: record %s has bad start_time: %w", rec.Key, err)
	}
	end, err := time.Parse(time.RFC3339, f["end_time"])
	if err != nil {
		return nil, fmt.Errorf("booking: record %s has bad end_time: %w", rec.Key, err)
	}

	status := AppointmentStatus(f["status"])
	if status == "" {
		status = AppointmentConfirmed
	}

	return &StoredAppointment{
		ID:              f["id"],
		UserID:          f["user_id"],
		PatientName:     f["patient_name"],
		Reason:          f["reason"],
		StartTime:       start,
		EndTime:         end,
		CalendarEventID: f["calendar_event_id"],
		Status:          status,
	}, nil
}

func profileToRecord(p *UserProfile) store.Record {
	fields := map[string]string{
		"type":    "user",
		"user_id": p.UserID,
		"name":    p.Name,
		"email":   p.Email,
		"phone":   p.Phone,
	}

	prefs := p.Preferences
	if len(prefs.PreferredTimes) > 0 {
		fields["preferred_times"] = strings.Join(prefs.PreferredTimes, "|")
	}
	if prefs.PreferredDentist != "" {
		fields["preferred_dentist"] = prefs.PreferredDentist
	}
	if prefs.InsuranceProvider != "" {
		fields["insurance_provider"] = prefs.InsuranceProvider
	}
	if prefs.DentalAnxiety != nil {
		fields["dental_anxiety"] = strconv.FormatBool(*prefs.DentalAnxiety)
	}
	if prefs.PrefersBriefResponses != nil {
		fields["prefers_brief_responses"] = strconv.FormatBool(*prefs.PrefersBriefResponses)
	}
	if prefs.PrefersEmojis != nil {
		fields["prefers_emojis"] = strconv.FormatBool(*prefs.PrefersEmojis)
	}
	if prefs.Tone != "" {
		fields["tone"] = prefs.Tone
	}
	if !prefs.LastUpdated.IsZero() {
		fields["preferences_updated"] = prefs.LastUpdated.Format(time.RFC3339)
	}

	return store.Record{
		Namespace: store.NamespaceUsers,
		Key:       userKey(p.UserID),
		Fields:    fields,
	}
}

func profileFromRecord(rec store.Record) *UserProfile {
	f := rec.Fields
	p := &UserProfile{
		UserID: f["user_id"],
		Name:   f["name"],
		Email:  f["email"],
		Phone:  f["phone"],
	}

	if v := f["preferred_times"]; v != "" {
		p.Preferences.PreferredTimes = strings.Split(v, "|")
	}
	p.Preferences.PreferredDentist = f["preferred_dentist"]
	p.Preferences.InsuranceProvider = f["insurance_provider"]
	if v, ok := f["dental_anxiety"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			p.Preferences.DentalAnxiety = &b
		}
	}
	if v, ok := f["prefers_brief_responses"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			p.Preferences.PrefersBriefResponses = &b
		}
	}
	if v, ok := f["prefers_emojis"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			p.Preferences.PrefersEmojis = &b
		}
	}
	p.Preferences.Tone = f["tone"]
	if v := f["preferences_updated"]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			p.Preferences.LastUpdated = t
		}
	}
	return p
}
