package session

import (
	"fmt"
	"sync"
	"time"
)

// Manager tracks open sessions by token.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Open registers a session for a freshly issued token.
func (m *Manager) Open(token, employeeID string) Session {
	s := New(token, employeeID, m.now(), m.ttl)
	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()
	return s
}

// Lookup returns the open session for token. Expired sessions are dropped.
func (m *Manager) Lookup(token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNoSession
	}
	if !s.Valid(m.now()) {
		delete(m.sessions, token)
		return Session{}, fmt.Errorf("%w: at %s", ErrExpired, s.ExpiresAt.Format(time.RFC3339))
	}
	return s, nil
}

// Close invalidates a session. Closing an unknown token is a no-op.
func (m *Manager) Close(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}
