package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

// GoogleCalendar implements Collaborator on top of the Google Calendar v3 API.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	timezone   string
	logger     *logging.Logger
}

// NewGoogleCalendar builds a Google Calendar client from a credentials file.
// calendarID is the target calendar ("primary" for the default one);
// timezone is the IANA name attached to created events.
func NewGoogleCalendar(ctx context.Context, credentialsFile, calendarID, timezone string, logger *logging.Logger) (*GoogleCalendar, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("calendar: google credentials file is required")
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if logger == nil {
		logger = logging.Default()
	}

	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create google calendar service: %w", err)
	}

	return &GoogleCalendar{
		svc:        svc,
		calendarID: calendarID,
		timezone:   timezone,
		logger:     logger,
	}, nil
}

// ListEvents returns events overlapping [timeMin, timeMax), expanded to
// single instances and ordered by start time.
func (g *GoogleCalendar) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	res, err := g.svc.Events.List(g.calendarID).
		TimeMin(timeMin.UTC().Format(time.RFC3339)).
		TimeMax(timeMax.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}

	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, eventFromGoogle(item))
	}
	return events, nil
}

// eventFromGoogle maps an API event to our Event. A missing dateTime means
// the entry is all-day, represented by nil Start/End.
func eventFromGoogle(item *gcal.Event) Event {
	ev := Event{ID: item.Id, Summary: item.Summary}
	if item.Start != nil && item.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
			ev.Start = &t
		}
	}
	if item.End != nil && item.End.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
			ev.End = &t
		}
	}
	return ev
}

// CreateEvent inserts a time-bounded event and returns the created id.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, summary, description string, start, end time.Time) (string, error) {
	body := &gcal.Event{
		Summary:     summary,
		Description: description,
		Start:       g.eventDateTime(start),
		End:         g.eventDateTime(end),
	}

	created, err := g.svc.Events.Insert(g.calendarID, body).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: create event: %w", err)
	}
	return created.Id, nil
}

// UpdateEvent moves an existing event to the new interval.
func (g *GoogleCalendar) UpdateEvent(ctx context.Context, eventID string, start, end time.Time) (string, error) {
	patch := &gcal.Event{
		Start: g.eventDateTime(start),
		End:   g.eventDateTime(end),
	}

	updated, err := g.svc.Events.Patch(g.calendarID, eventID, patch).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: update event %s: %w", eventID, err)
	}
	return updated.Id, nil
}

// DeleteEvent removes an event. Already-deleted events are treated as
// success so cancellation stays idempotent.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok && (apiErr.Code == 404 || apiErr.Code == 410) {
			g.logger.Warn("calendar event already gone", "event_id", eventID, "code", apiErr.Code)
			return nil
		}
		return fmt.Errorf("calendar: delete event %s: %w", eventID, err)
	}
	return nil
}

func (g *GoogleCalendar) eventDateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: g.timezone,
	}
}
