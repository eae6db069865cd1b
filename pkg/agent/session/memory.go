package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in a process-local map. Histories are copied on
// read so callers never observe concurrent mutation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Create(_ context.Context, profile map[string]string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
		Profile:   defaultProfile(profile),
		Messages:  []Message{},
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return copySession(sess), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	return copySession(sess), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return notFound(id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, id string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return notFound(id)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	sess.Messages = append(sess.Messages, msg)
	return nil
}

func (s *MemoryStore) History(_ context.Context, id string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, notFound(id)
	}
	out := make([]Message, len(sess.Messages))
	copy(out, sess.Messages)
	return out, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id string, profile map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return notFound(id)
	}
	for k, v := range profile {
		sess.Profile[k] = v
	}
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ActiveSessions: len(s.sessions)}
	for _, sess := range s.sessions {
		stats.TotalMessages += len(sess.Messages)
	}
	return stats, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copySession(sess *Session) *Session {
	out := &Session{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt,
		Profile:   make(map[string]string, len(sess.Profile)),
		Messages:  make([]Message, len(sess.Messages)),
	}
	for k, v := range sess.Profile {
		out.Profile[k] = v
	}
	copy(out.Messages, sess.Messages)
	return out
}
