// Package dispatch is the boundary between the conversational layer and the
// booking engine. Every capability is a named operation with a JSON argument
// payload; the dispatcher decodes, routes, gates blocked sessions, and
// records metrics. The language model never touches the engine directly.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smileworks/dental-ai-platform/internal/booking"
	"github.com/smileworks/dental-ai-platform/internal/history"
	"github.com/smileworks/dental-ai-platform/internal/moderation"
	"github.com/smileworks/dental-ai-platform/internal/observability/metrics"
	"github.com/smileworks/dental-ai-platform/internal/session"
	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

// Operation names accepted by the dispatcher.
const (
	OpBook              = "book"
	OpReschedule        = "reschedule"
	OpCancel            = "cancel"
	OpLookup            = "lookup"
	OpCheckSlot         = "check_slot"
	OpUpdatePreferences = "update_preferences"
	OpGetPreferences    = "get_preferences"
	OpModerationGuard   = "moderation_guard"
	OpResetSession      = "reset_session"
)

// Request is a single tool invocation from the conversational layer.
type Request struct {
	SessionID string          `json:"session_id"`
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args,omitempty"`
}

type rescheduleArgs struct {
	ContactEmail string `json:"contact_email"`
	NewDate      string `json:"new_date"`
	NewTime      string `json:"new_time"`
}

type emailArgs struct {
	ContactEmail string `json:"contact_email"`
}

type checkSlotArgs struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type preferencesArgs struct {
	ContactEmail string                  `json:"contact_email"`
	Preferences  booking.PreferencePatch `json:"preferences"`
}

// Dispatcher routes named operations to the booking workflow and the
// moderation guard.
type Dispatcher struct {
	workflow *booking.Workflow
	guard    *moderation.Guard
	sessions session.Store
	metrics  *metrics.AssistantMetrics
	hist     *history.Log
	logger   *logging.Logger
}

// NewDispatcher wires the dispatcher. metrics and hist may be nil.
func NewDispatcher(
	workflow *booking.Workflow,
	guard *moderation.Guard,
	sessions session.Store,
	m *metrics.AssistantMetrics,
	hist *history.Log,
	logger *logging.Logger,
) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{workflow: workflow, guard: guard, sessions: sessions, metrics: m, hist: hist, logger: logger}
}

// Dispatch executes one operation end to end. A blocked session short-
// circuits every operation except reset_session with the fixed lockout
// message. Unknown operations and bad payloads come back as error results,
// never as Go errors: the conversational layer always gets something it can
// relay.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) booking.Result {
	started := time.Now()
	res := d.dispatch(ctx, req)
	d.metrics.ObserveOperation(req.Operation, string(res.Status))
	d.metrics.ObserveOperationLatency(req.Operation, time.Since(started).Seconds())
	d.recordHistory(ctx, req, res)

	d.logger.Info("operation dispatched",
		"session_id", req.SessionID,
		"operation", req.Operation,
		"status", res.Status,
	)
	return res
}

// Blocked reports whether the session is locked out by moderation.
func (d *Dispatcher) Blocked(ctx context.Context, sessionID string) (bool, error) {
	return d.guard.Blocked(ctx, sessionID)
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) booking.Result {
	if req.Operation == "" {
		return errorResult("missing operation name")
	}

	if req.Operation != OpResetSession {
		blocked, err := d.guard.Blocked(ctx, req.SessionID)
		if err != nil {
			d.logger.Error("blocked check failed", "session_id", req.SessionID, "error", err)
			return errorResult("could not verify session state")
		}
		if blocked {
			return booking.Result{Status: booking.Status(moderation.StatusBlocked), Message: moderation.BlockedMessage}
		}
	}

	switch req.Operation {
	case OpBook:
		var appt booking.Appointment
		if err := decodeArgs(req.Args, &appt); err != nil {
			return errorResult(err.Error())
		}
		return d.workflow.Book(ctx, req.SessionID, appt)

	case OpReschedule:
		var args rescheduleArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return errorResult(err.Error())
		}
		return d.workflow.Reschedule(ctx, req.SessionID, args.ContactEmail, args.NewDate, args.NewTime)

	case OpCancel:
		var args emailArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return errorResult(err.Error())
		}
		return d.workflow.Cancel(ctx, args.ContactEmail)

	case OpLookup:
		var args emailArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return errorResult(err.Error())
		}
		return d.workflow.Lookup(ctx, args.ContactEmail)

	case OpCheckSlot:
		var args checkSlotArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return errorResult(err.Error())
		}
		return d.workflow.CheckSlot(ctx, args.Date, args.Time)

	case OpUpdatePreferences:
		var args preferencesArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return errorResult(err.Error())
		}
		return d.workflow.UpdatePreferences(ctx, args.ContactEmail, args.Preferences)

	case OpGetPreferences:
		var args emailArgs
		if err := decodeArgs(req.Args, &args); err != nil {
			return errorResult(err.Error())
		}
		return d.workflow.GetPreferences(ctx, args.ContactEmail)

	case OpModerationGuard:
		out, err := d.guard.Flag(ctx, req.SessionID)
		if err != nil {
			d.logger.Error("moderation flag failed", "session_id", req.SessionID, "error", err)
			return errorResult("could not record the violation")
		}
		d.metrics.ObserveModeration(string(out.Status))
		return booking.Result{Status: booking.Status(out.Status), Message: out.Message}

	case OpResetSession:
		if err := d.sessions.Reset(ctx, req.SessionID); err != nil {
			d.logger.Error("session reset failed", "session_id", req.SessionID, "error", err)
			return errorResult("could not reset the session")
		}
		return booking.Result{Status: booking.StatusUpdated, Message: "Session cleared. Let's start fresh!"}

	default:
		return errorResult(fmt.Sprintf("unknown operation %q", req.Operation))
	}
}

// recordHistory appends the outcome to the operation log. Audit failures
// never affect the user-facing result.
func (d *Dispatcher) recordHistory(ctx context.Context, req Request, res booking.Result) {
	if d.hist == nil {
		return
	}
	ev := history.Event{
		SessionID: req.SessionID,
		Operation: req.Operation,
		Status:    string(res.Status),
	}
	if res.Appointment != nil {
		ev.UserID = res.Appointment.UserID
		detail, err := json.Marshal(map[string]string{"appointment_id": res.Appointment.ID})
		if err == nil {
			ev.Detail = detail
		}
	}
	if err := d.hist.Record(ctx, ev); err != nil {
		d.logger.Warn("operation history write failed", "operation", req.Operation, "error", err)
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	return nil
}

func errorResult(msg string) booking.Result {
	return booking.Result{
		Status:  booking.StatusError,
		Message: fmt.Sprintf("Sorry, I couldn't complete that: %s.", msg),
	}
}
