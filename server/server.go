package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/floodline/floodline/session"
)

// ============================================================================
// HTTP SERVER — the /ask endpoint and session management
// ============================================================================
// A thin JSON layer over the conversation: clients hold a session ID and
// post questions; everything stateful happens behind the Conversation.
// ============================================================================

const (
	requestTimeout = 30 * time.Second
	maxQuestionLen = 500
)

// Server exposes the conversation over HTTP.
type Server struct {
	conv *session.Conversation
	log  zerolog.Logger
}

// NewServer wraps a conversation.
func NewServer(conv *session.Conversation, log zerolog.Logger) *Server {
	return &Server{conv: conv, log: log}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Post("/ask", s.handleAsk)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/context", s.handleContext)
		r.Delete("/context", s.handleClearContext)
		r.Get("/history", s.handleHistory)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// askRequest is the /ask payload.
type askRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(req.Question) > maxQuestionLen {
		writeError(w, http.StatusBadRequest, "question is too long")
		return
	}

	answer, err := s.conv.Ask(r.Context(), req.SessionID, req.Question)
	if err != nil {
		s.log.Error().Err(err).Str("session", req.SessionID).Msg("ask failed")
		writeError(w, http.StatusInternalServerError, "failed to answer the question")
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	summary, err := s.conv.ContextSummary(r.Context(), sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("context lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to load session context")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"context":    summary,
	})
}

func (s *Server) handleClearContext(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.conv.ClearContext(r.Context(), sessionID); err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("context clear failed")
		writeError(w, http.StatusInternalServerError, "failed to clear session context")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "cleared",
	})
}

// historyEntry mirrors session.Turn for the wire.
type historyEntry struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Action   string    `json:"action,omitempty"`
	At       time.Time `json:"at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	turns, err := s.conv.History(r.Context(), sessionID, limit)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("history lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to load session history")
		return
	}
	entries := make([]historyEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, historyEntry{
			Question: t.Question,
			Answer:   t.Answer,
			Action:   t.Action,
			At:       t.At,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"turns":      entries,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
