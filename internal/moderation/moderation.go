// Package moderation enforces the escalating response to inappropriate
// messages: first offence gets a warning, second a stronger warning, and
// the third locks the session until it is reset.
package moderation

import (
	"context"
	"fmt"

	"github.com/smileworks/dental-ai-platform/internal/session"
	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

// Status is the moderation outcome for a flagged message.
type Status string

const (
	StatusWarn    Status = "warn"
	StatusBlocked Status = "blocked"
)

// BlockedMessage is the fixed reply for a locked session. Every operation
// on a blocked session returns exactly this text.
const BlockedMessage = "This conversation has been locked due to repeated " +
	"inappropriate messages. Please contact the clinic directly to continue."

// Outcome is the guard's verdict on a flagged message.
type Outcome struct {
	Status     Status `json:"status"`
	Message    string `json:"message"`
	Violations int    `json:"violations"`
}

// Guard tracks per-session violations. It never inspects message content;
// the conversational layer decides what counts as a violation and calls
// Flag.
type Guard struct {
	sessions session.Store
	logger   *logging.Logger
}

// NewGuard creates a moderation guard over the session store.
func NewGuard(sessions session.Store, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{sessions: sessions, logger: logger}
}

// Flag records a violation for the session and returns the escalated
// outcome. Counting is delegated to the session store's atomic increment,
// so concurrent flags never lose a step.
func (g *Guard) Flag(ctx context.Context, sessionID string) (Outcome, error) {
	count, err := g.sessions.IncrViolations(ctx, sessionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("moderation: record violation: %w", err)
	}

	g.logger.Warn("inappropriate message flagged", "session_id", sessionID, "violations", count)

	switch count {
	case 1:
		return Outcome{
			Status:     StatusWarn,
			Violations: count,
			Message: "Let's keep this conversation respectful, please. " +
				"I'm here to help you with dental appointments.",
		}, nil
	case 2:
		return Outcome{
			Status:     StatusWarn,
			Violations: count,
			Message: "This is your final warning. One more inappropriate " +
				"message and I'll have to end this conversation.",
		}, nil
	default:
		return Outcome{Status: StatusBlocked, Violations: count, Message: BlockedMessage}, nil
	}
}

// Blocked reports whether the session has reached the lockout threshold.
func (g *Guard) Blocked(ctx context.Context, sessionID string) (bool, error) {
	count, err := g.sessions.Violations(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("moderation: read violations: %w", err)
	}
	return count >= 3, nil
}
