package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/smileworks/dental-ai-platform/internal/schedule"
)

// Result is the structured outcome of a workflow operation. Message is
// always a complete, user-facing sentence the dispatcher may relay without
// modification.
type Result struct {
	Status       Status             `json:"status"`
	Message      string             `json:"message"`
	Alternatives []schedule.Slot    `json:"alternatives,omitempty"`
	Appointment  *StoredAppointment `json:"appointment,omitempty"`
	Preferences  *Preferences       `json:"preferences,omitempty"`
}

func errResult(err error) Result {
	return Result{
		Status:  StatusError,
		Message: fmt.Sprintf("Sorry, I couldn't complete that due to an internal error: %v", err),
	}
}

func validationResult(err error) Result {
	return Result{
		Status:  StatusError,
		Message: fmt.Sprintf("That doesn't look right: %v. Could you double-check and try again?", err),
	}
}

func outsideHoursResult() Result {
	return Result{
		Status: StatusOutsideHours,
		Message: "The clinic takes appointments between 09:00 AM and 06:00 PM with a lunch break " +
			"from 01:00 PM to 02:00 PM. Could you pick a time within working hours?",
	}
}

// formatDate renders a clinic-local date the way patients see it.
func formatDate(t time.Time) string { return t.Format("02-01-2006") }

// formatSlot renders a slot start for messages, e.g. "25-08-2025 at 10:30 AM".
func formatSlot(t time.Time) string { return t.Format("02-01-2006 at 03:04 PM") }

// formatAlternatives renders a numbered suggestion list in scan order.
func formatAlternatives(slots []schedule.Slot) string {
	var b strings.Builder
	for i, s := range slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, formatSlot(s.Start))
	}
	return strings.TrimRight(b.String(), "\n")
}
