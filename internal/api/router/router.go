// Package router assembles the HTTP surface of the assistant: the chat
// endpoint, the raw tool-call endpoints, session reset, and operational
// routes.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/smileworks/dental-ai-platform/internal/booking"
	"github.com/smileworks/dental-ai-platform/internal/dispatch"
	httpmiddleware "github.com/smileworks/dental-ai-platform/internal/http/middleware"
	"github.com/smileworks/dental-ai-platform/internal/session"
	"github.com/smileworks/dental-ai-platform/pkg/logging"
)

// Responder produces the assistant's conversational reply for one user
// message.
type Responder interface {
	Reply(ctx context.Context, sessionID, message string) (string, error)
}

// Config holds router configuration.
type Config struct {
	Logger     *logging.Logger
	Dispatcher *dispatch.Dispatcher

	// Assistant is optional; without it /v1/chat returns 503 and only
	// the structured tool endpoints are live.
	Assistant Responder

	// Sessions serves the last-booking projection on /v1/appointment.
	Sessions session.Store

	MetricsHandler http.Handler

	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	h := &handler{cfg: cfg, logger: cfg.Logger}
	if h.logger == nil {
		h.logger = logging.Default()
	}

	r.Get("/healthz", h.health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/chat", h.chat)
		v1.Post("/tools/{operation}", h.tool)
		v1.Post("/session/reset", h.resetSession)
		v1.Get("/appointment", h.appointment)
	})

	return r
}

type handler struct {
	cfg    *Config
	logger *logging.Logger
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

type toolRequest struct {
	SessionID string          `json:"session_id"`
	Args      json.RawMessage `json:"args,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "conversational assistant is not configured")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	reply, err := h.cfg.Assistant.Reply(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.logger.Error("assistant reply failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusBadGateway, "the assistant could not respond, please try again")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{SessionID: req.SessionID, Reply: reply})
}

// tool exposes the dispatcher directly, bypassing the language model. The
// operation name comes from the path; outcomes always arrive as a 200 with
// the result status inside, so callers branch on one shape.
func (h *handler) tool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	res := h.cfg.Dispatcher.Dispatch(r.Context(), dispatch.Request{
		SessionID: req.SessionID,
		Operation: chi.URLParam(r, "operation"),
		Args:      req.Args,
	})
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) resetSession(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	res := h.cfg.Dispatcher.Dispatch(r.Context(), dispatch.Request{
		SessionID: req.SessionID,
		Operation: dispatch.OpResetSession,
	})
	writeJSON(w, http.StatusOK, res)
}

// appointment returns either the session's last-booking projection
// (?session_id=) or, for staff tooling, the nearest upcoming appointment
// for an email (?email=).
func (h *handler) appointment(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" || h.cfg.Sessions == nil {
			writeError(w, http.StatusBadRequest, "email or session_id query parameter is required")
			return
		}
		lb, err := h.cfg.Sessions.GetLastBooking(r.Context(), sessionID)
		if errors.Is(err, session.ErrNoLastBooking) {
			writeError(w, http.StatusNotFound, "no booking recorded for this session")
			return
		}
		if err != nil {
			h.logger.Error("last booking read failed", "session_id", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "could not read session state")
			return
		}
		writeJSON(w, http.StatusOK, lb)
		return
	}

	args, _ := json.Marshal(map[string]string{"contact_email": email})
	res := h.cfg.Dispatcher.Dispatch(r.Context(), dispatch.Request{
		SessionID: r.URL.Query().Get("session_id"),
		Operation: dispatch.OpLookup,
		Args:      args,
	})
	if res.Status == booking.StatusNotFound {
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
