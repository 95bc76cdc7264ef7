// Package assistant is the conversational layer: a Gemini-backed agent that
// collects booking details one question at a time and acts exclusively
// through named tool calls on the dispatcher. The model never computes
// dates, checks calendars, or writes storage itself.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/smileworks/dental-ai-platform/internal/dispatch"
	"github.com/smileworks/dental-ai-platform/internal/moderation"
	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

// maxToolRounds bounds how many tool-call rounds one user message may
// trigger before the loop is cut.
const maxToolRounds = 6

// historyLimit caps per-session history so long conversations do not grow
// the prompt without bound.
const historyLimit = 40

// Assistant drives the conversation with Gemini and relays its tool calls
// to the dispatcher.
type Assistant struct {
	client     *genai.Client
	modelID    string
	dispatcher *dispatch.Dispatcher
	clinicName string
	logger     *logging.Logger

	mu        sync.Mutex
	histories map[string][]*genai.Content
}

// New creates the Gemini-backed assistant.
func New(ctx context.Context, apiKey, modelID string, d *dispatch.Dispatcher, clinicName string, logger *logging.Logger) (*Assistant, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("assistant: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("assistant: failed to create gemini client: %w", err)
	}

	return &Assistant{
		client:     client,
		modelID:    modelID,
		dispatcher: d,
		clinicName: clinicName,
		logger:     logger,
		histories:  make(map[string][]*genai.Content),
	}, nil
}

// Close releases the Gemini client.
func (a *Assistant) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// Reply handles one user message. A blocked session never reaches the
// model: it gets the fixed lockout message immediately.
func (a *Assistant) Reply(ctx context.Context, sessionID, message string) (string, error) {
	blocked, err := a.dispatcher.Blocked(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("assistant: session state check: %w", err)
	}
	if blocked {
		return moderation.BlockedMessage, nil
	}

	model := a.client.GenerativeModel(a.modelID)
	model.SystemInstruction = genai.NewUserContent(genai.Text(a.systemPrompt()))
	model.Tools = []*genai.Tool{{FunctionDeclarations: toolDeclarations()}}

	cs := model.StartChat()
	cs.History = a.history(sessionID)

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("assistant: gemini completion failed: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}

		var responses []genai.Part
		for _, call := range calls {
			result := a.relay(ctx, sessionID, call)
			responses = append(responses, genai.FunctionResponse{
				Name:     call.Name,
				Response: result,
			})
		}

		resp, err = cs.SendMessage(ctx, responses...)
		if err != nil {
			return "", fmt.Errorf("assistant: gemini tool round failed: %w", err)
		}
	}

	text := responseText(resp)
	if text == "" {
		return "", errors.New("assistant: gemini returned no text")
	}

	a.storeHistory(sessionID, cs.History)
	return text, nil
}

// relay executes one model-requested tool call through the dispatcher and
// shapes the result for the model.
func (a *Assistant) relay(ctx context.Context, sessionID string, call genai.FunctionCall) map[string]any {
	args, err := json.Marshal(call.Args)
	if err != nil {
		return map[string]any{"status": "error", "message": "arguments could not be encoded"}
	}

	a.logger.Info("model tool call", "session_id", sessionID, "operation", call.Name)
	res := a.dispatcher.Dispatch(ctx, dispatch.Request{
		SessionID: sessionID,
		Operation: call.Name,
		Args:      args,
	})

	out := map[string]any{
		"status":  string(res.Status),
		"message": res.Message,
	}
	if len(res.Alternatives) > 0 {
		var alts []string
		for _, s := range res.Alternatives {
			alts = append(alts, s.Start.Format("02-01-2006 03:04 PM"))
		}
		out["alternatives"] = alts
	}
	return out
}

func (a *Assistant) systemPrompt() string {
	return fmt.Sprintf(`You are the friendly appointment assistant for %s, a dental clinic.

Rules you must always follow:
- Ask for exactly one piece of information per message. Never ask for two things at once.
- To book you need: patient name, preferred date, preferred time, reason for visit, and contact email. Phone number is optional.
- Never guess or compute dates and times yourself. Pass the patient's own words to the tools and relay what they return.
- Only discuss dental appointments and clinic services. Politely decline anything else.
- If a message is abusive or inappropriate, call moderation_guard and relay its message verbatim.
- When a slot is unavailable, present the returned alternatives as a numbered list and ask the patient to pick one.
- Relay tool result messages to the patient faithfully; do not invent confirmations.`, a.clinicName)
}

func (a *Assistant) history(sessionID string) []*genai.Content {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.histories[sessionID]
}

func (a *Assistant) storeHistory(sessionID string, history []*genai.Content) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	a.histories[sessionID] = history
}

// ForgetSession drops the in-memory conversation history.
func (a *Assistant) ForgetSession(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.histories, sessionID)
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if fc, ok := part.(genai.FunctionCall); ok {
				calls = append(calls, fc)
			}
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
