package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
	"github.com/gagent-dev/gagent/pkg/agent/session"
	"github.com/gagent-dev/gagent/pkg/agent/stream"
	"github.com/gagent-dev/gagent/pkg/agent/transcript"
)

const (
	serviceName    = "GAgent Financial Advisor API"
	serviceVersion = "1.0.0"

	// maxPromptLength bounds a single user prompt.
	maxPromptLength = 2000
)

type chatRequest struct {
	SessionID  string `json:"session_id"`
	UserPrompt string `json:"user_prompt"`
}

type createSessionRequest struct {
	UserProfile map[string]string `json:"user_profile"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "invalid request body")
		return
	}

	sess, err := s.store.Create(r.Context(), req.UserProfile)
	if err != nil {
		s.logger.Error("failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeSessionCreate, "failed to create session")
		return
	}

	s.logger.Info("created session", zap.String("session_id", sess.ID))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id":   sess.ID,
		"message":      "Session created successfully",
		"created_at":   sess.CreatedAt,
		"user_profile": sess.Profile,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]

	if err := s.store.Delete(r.Context(), id); err != nil {
		if session.IsNotFound(err) {
			writeError(w, http.StatusNotFound, apperrors.ErrCodeSessionNotFound, "session not found")
			return
		}
		s.logger.Error("failed to delete session", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeSessionDelete, "failed to delete session")
		return
	}

	s.logger.Info("deleted session", zap.String("session_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted successfully"})
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]

	history, err := s.store.History(r.Context(), id)
	if err != nil {
		if session.IsNotFound(err) {
			writeError(w, http.StatusNotFound, apperrors.ErrCodeSessionNotFound, "session not found")
			return
		}
		s.logger.Error("failed to load history", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeStorage, "failed to get session history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"history":    history,
	})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to load session stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeStorage, "failed to get session stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleChatStream runs one conversation turn, relaying loop events to the
// client as SSE frames and persisting the exchange once the turn succeeds.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "session_id is required")
		return
	}
	if req.UserPrompt == "" || len(req.UserPrompt) > maxPromptLength {
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeInvalidInput, "user_prompt must be between 1 and 2000 characters")
		return
	}

	sess, err := s.store.Get(r.Context(), req.SessionID)
	if err != nil {
		if session.IsNotFound(err) {
			writeError(w, http.StatusNotFound, apperrors.ErrCodeSessionNotFound, "session not found")
			return
		}
		s.logger.Error("failed to load session", zap.String("session_id", req.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeStorage, "failed to process chat request")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInvalidInput, "streaming unsupported")
		return
	}

	tr, err := s.buildTranscript(sess, req.UserPrompt)
	if err != nil {
		s.logger.Error("failed to build transcript", zap.String("session_id", sess.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeInvalidInput, "failed to process chat request")
		return
	}

	s.logger.Info("starting chat stream", zap.String("session_id", sess.ID))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable nginx buffering so frames reach the client immediately.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if s.metrics != nil {
		s.metrics.streamOpened()
		defer s.metrics.streamClosed()
	}

	ctx := r.Context()
	events := make(chan stream.Event, 16)
	emitter := stream.NewEmitter(sess.ID, events)

	var runErr error
	go func() {
		defer close(events)
		_, runErr = s.agentLoop.Run(ctx, tr, emitter)
	}()

	var accumulator stream.Accumulator
	keepalive := time.NewTicker(s.keepAliveInterval)
	defer keepalive.Stop()

relay:
	for {
		select {
		case event, open := <-events:
			if !open {
				break relay
			}
			accumulator.Observe(event)
			frame, err := stream.EncodeSSE(event)
			if err != nil {
				s.logger.Error("failed to encode stream event", zap.Error(err))
				continue
			}
			if _, err := w.Write(frame); err != nil {
				s.logger.Warn("client write failed, draining stream",
					zap.String("session_id", sess.ID), zap.Error(err))
				continue
			}
			flusher.Flush()
			if s.metrics != nil {
				s.metrics.observeEvent(stream.WireType(event.Kind))
			}
		case <-keepalive.C:
			if _, err := w.Write(stream.KeepAliveFrame()); err == nil {
				flusher.Flush()
			}
		}
	}

	if runErr != nil {
		s.logger.Warn("chat stream finished with error",
			zap.String("session_id", sess.ID), zap.Error(runErr))
		return
	}

	s.persistExchange(r, sess.ID, req.UserPrompt, accumulator.Text())
}

// buildTranscript reconstructs the conversation from stored history and
// appends the new user prompt.
func (s *Server) buildTranscript(sess *session.Session, userPrompt string) (*transcript.Transcript, error) {
	tr := transcript.New(s.instruction)
	for _, msg := range sess.Messages {
		var turn transcript.Turn
		switch msg.Role {
		case string(transcript.RoleUser):
			turn = transcript.UserTurn(msg.Content)
		case string(transcript.RoleAssistant):
			turn = transcript.AssistantTurn(msg.Content)
		default:
			continue
		}
		if err := tr.Append(turn); err != nil {
			return nil, err
		}
	}
	if err := tr.Append(transcript.UserTurn(userPrompt)); err != nil {
		return nil, err
	}
	return tr, nil
}

// persistExchange stores the completed turn. A turn that produced no
// assistant text stores only the user prompt.
func (s *Server) persistExchange(r *http.Request, sessionID, userPrompt, assistantText string) {
	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	if err := s.store.AppendMessage(ctx, sessionID, session.Message{
		Role:    string(transcript.RoleUser),
		Content: userPrompt,
	}); err != nil {
		s.logger.Error("failed to persist user message",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if assistantText == "" {
		return
	}
	if err := s.store.AppendMessage(ctx, sessionID, session.Message{
		Role:    string(transcript.RoleAssistant),
		Content: assistantText,
	}); err != nil {
		s.logger.Error("failed to persist assistant message",
			zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":     serviceName,
		"version":     serviceVersion,
		"description": "Agentic AI Financial Advisor with streaming capabilities",
		"endpoints": map[string]string{
			"health":          "/health",
			"metrics":         "/metrics",
			"create_session":  "POST /sessions",
			"chat_stream":     "POST /chat/stream",
			"session_history": "GET /sessions/{session_id}/history",
			"session_stats":   "GET /sessions/stats",
			"delete_session":  "DELETE /sessions/{session_id}",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
