// Package session manages chat sessions: creation, per-session message
// history, user profiles, and deletion. Two Store implementations exist, an
// in-memory map for tests and single-node use and a SQLite-backed store for
// durability across restarts.
package session

import (
	"context"
	"time"

	apperrors "github.com/gagent-dev/gagent/pkg/agent/errors"
)

// Default profile applied to new sessions unless the caller overrides it.
const (
	DefaultRiskTolerance = "moderate"

	ProfileKeyRiskTolerance = "risk_tolerance"
)

// Message is one persisted exchange entry. Role follows the transcript
// convention ("user" or "assistant").
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one chat session and its accumulated history.
type Session struct {
	ID        string            `json:"session_id"`
	CreatedAt time.Time         `json:"created_at"`
	Profile   map[string]string `json:"user_profile"`
	Messages  []Message         `json:"messages"`
}

// Stats summarizes a store's contents.
type Stats struct {
	ActiveSessions int `json:"active_sessions"`
	TotalMessages  int `json:"total_messages"`
}

// Store persists sessions. Implementations must be safe for concurrent use;
// every method operating on an unknown session id returns a session-not-found
// error distinguishable via IsNotFound.
type Store interface {
	// Create makes a new session with a server-assigned id. A nil profile
	// gets the default risk tolerance.
	Create(ctx context.Context, profile map[string]string) (*Session, error)

	// Get returns a session by id.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session and its history.
	Delete(ctx context.Context, id string) error

	// AppendMessage appends one message to a session's history.
	AppendMessage(ctx context.Context, id string, msg Message) error

	// History returns a session's messages in append order.
	History(ctx context.Context, id string) ([]Message, error)

	// UpdateProfile merges the given keys into the session's profile.
	UpdateProfile(ctx context.Context, id string, profile map[string]string) error

	// Stats reports active session and message counts.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any backing resources.
	Close() error
}

// IsNotFound reports whether err marks a missing session.
func IsNotFound(err error) bool {
	return apperrors.Code(err) == apperrors.ErrCodeSessionNotFound
}

func notFound(id string) error {
	return apperrors.New(apperrors.ErrCodeSessionNotFound, "session not found: "+id, nil)
}

func defaultProfile(profile map[string]string) map[string]string {
	merged := map[string]string{ProfileKeyRiskTolerance: DefaultRiskTolerance}
	for k, v := range profile {
		merged[k] = v
	}
	return merged
}
