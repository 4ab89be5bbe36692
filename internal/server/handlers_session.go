package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/sagelabs/sage/internal/catalog"
	"github.com/sagelabs/sage/internal/event"
	"github.com/sagelabs/sage/internal/session"
	"github.com/sagelabs/sage/pkg/types"
)

// CreateSessionRequest is the request to create a session.
type CreateSessionRequest struct {
	User string            `json:"user"`
	Type types.SessionType `json:"type"`
}

// HistoryTurn is one prior turn of the conversation in wire form.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SendMessageRequest is the request to send a user message.
type SendMessageRequest struct {
	Content string          `json:"content"`
	History []HistoryTurn   `json:"history,omitempty"`
	Model   *types.ModelRef `json:"model,omitempty"`
}

// createSession handles POST /session
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.User == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "user is required")
		return
	}
	if !types.KnownSessionType(req.Type) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "unknown session type")
		return
	}

	sess, err := s.service.Create(r.Context(), req.User, req.Type)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// listSessions handles GET /session?user=
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "user is required")
		return
	}

	sessions, err := s.service.List(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}

	writeJSON(w, http.StatusOK, sessions)
}

// getSession handles GET /session/{sessionID}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.service.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// Per-user request rate over the sliding window enforced by sendMessage.
const (
	RequestRateWindow = time.Minute
	RequestRateLimit  = 30
)

// sendMessage handles POST /session/{sessionID}/message.
// The response is an SSE stream of engine events, closing when the round
// trip through the model finishes.
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content is required")
		return
	}

	sess, err := s.service.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	if sess.Status.Terminal() {
		writeError(w, http.StatusConflict, ErrCodeConflict, "Session is "+string(sess.Status))
		return
	}

	// Request accounting happens in the processor; the count here only
	// gates admission, so a failed count does not block the message.
	since := time.Now().Add(-RequestRateWindow)
	if n, err := s.catalog.CountRequestsSince(r.Context(), sess.User, since); err == nil && n >= RequestRateLimit {
		writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests, slow down")
		return
	}

	setSSEHeaders(w)
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	messages := make([]*schema.Message, 0, len(req.History)+1)
	for _, turn := range req.History {
		switch turn.Role {
		case "assistant":
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(turn.Content))
		}
	}
	messages = append(messages, schema.UserMessage(req.Content))

	procReq := &session.ProcessRequest{
		SessionID: sessionID,
		User:      sess.User,
		Messages:  messages,
		Model:     req.Model,
	}

	// Buffered so the processing goroutine never blocks on a slow client
	// for long; the select below drains as fast as the client allows.
	events := make(chan event.Event, 64)
	done := make(chan error, 1)

	go func() {
		defer close(events)
		done <- s.processor.Process(r.Context(), procReq, func(ev event.Event) {
			select {
			case events <- ev:
			case <-r.Context().Done():
			}
		})
	}()

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Drain the final error after all events are delivered
				if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
					sse.writeEvent("error", map[string]string{"message": err.Error()})
				}
				sse.writeEvent("done", map[string]string{"sessionID": sessionID})
				return
			}
			if err := sse.writeEvent("message", StreamEvent{Type: ev.Type, Data: ev.Data}); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}

// abortSession handles POST /session/{sessionID}/abort
func (s *Server) abortSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.processor.Abort(sessionID); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}

	writeSuccess(w)
}

// abandonSession handles POST /session/{sessionID}/abandon
func (s *Server) abandonSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.service.Abandon(r.Context(), sessionID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	}

	writeSuccess(w)
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
