// Package httpapi exposes the advisor agent over HTTP: session management,
// the SSE chat stream, health, and metrics.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gagent-dev/gagent/internal/config"
	"github.com/gagent-dev/gagent/pkg/agent/loop"
	"github.com/gagent-dev/gagent/pkg/agent/session"
)

// Server holds the HTTP layer's dependencies and routes.
type Server struct {
	logger            *zap.Logger
	store             session.Store
	agentLoop         *loop.Loop
	metrics           *Metrics
	instruction       string
	keepAliveInterval time.Duration
	allowedOrigins    []string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics attaches Prometheus instrumentation and the /metrics endpoint.
func WithMetrics(m *Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithAllowedOrigins sets the CORS allow-list. Defaults to allowing any
// origin.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// NewServer creates the HTTP layer over a session store and an agent loop.
func NewServer(logger *zap.Logger, store session.Store, agentLoop *loop.Loop, instruction string, keepAliveInterval time.Duration, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keepAliveInterval <= 0 {
		keepAliveInterval = 15 * time.Second
	}
	s := &Server{
		logger:            logger,
		store:             store,
		agentLoop:         agentLoop,
		instruction:       instruction,
		keepAliveInterval: keepAliveInterval,
		allowedOrigins:    []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the service router with all routes attached.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(s.logger, s.metrics))

	router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	router.HandleFunc("/sessions/stats", s.handleSessionStats).Methods(http.MethodGet)
	router.HandleFunc("/sessions/{session_id}", s.handleDeleteSession).Methods(http.MethodDelete)
	router.HandleFunc("/sessions/{session_id}/history", s.handleSessionHistory).Methods(http.MethodGet)
	router.HandleFunc("/chat/stream", s.handleChatStream).Methods(http.MethodPost)

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	return router
}

// Handler wraps the router with CORS handling. CORS sits outside the router
// so preflight requests for any route get answered.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.allowedOrigins)(s.Router())
}

// Build wraps the handler in an http.Server configured from the server
// section.
func (s *Server) Build(cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
