// Package sessions holds per-connection conversational state: the current
// mode, chat history, and turn counters. One entry per live connection.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"luna/backend/internal/protocol"
)

// Message is one conversation turn stored in a session's history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Mode      string    `json:"mode"`
	Turns     int       `json:"turns"`
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	history  map[string][]Message
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		history:  make(map[string][]Message),
	}
}

// Create allocates a new session in idle mode. UUIDs keep IDs unique even for
// connections accepted in the same instant.
func (s *Store) Create() *Session {
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Mode:      protocol.ModeIdle,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *Store) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Remove drops the session and all of its conversation state.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	delete(s.history, id)
	s.mu.Unlock()
}

// SetMode records the session's mode; false if the session is gone.
func (s *Store) SetMode(id, mode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[id]
	if sess == nil {
		return false
	}
	sess.Mode = mode
	return true
}

func (s *Store) Mode(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess := s.sessions[id]; sess != nil {
		return sess.Mode
	}
	return ""
}

func (s *Store) IncrementTurns(id string) {
	s.mu.Lock()
	if sess := s.sessions[id]; sess != nil {
		sess.Turns++
	}
	s.mu.Unlock()
}

// AppendHistory adds messages to the session's conversation. History is kept
// for unknown session IDs too so REST clients can converse without a socket.
func (s *Store) AppendHistory(id string, msgs ...Message) {
	s.mu.Lock()
	s.history[id] = append(s.history[id], msgs...)
	s.mu.Unlock()
}

// History returns a copy of the session's conversation.
func (s *Store) History(id string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.history[id]
	out := make([]Message, len(src))
	copy(out, src)
	return out
}

// ClearHistory removes the conversation; false if there was none.
func (s *Store) ClearHistory(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.history[id]; !ok {
		return false
	}
	delete(s.history, id)
	return true
}
