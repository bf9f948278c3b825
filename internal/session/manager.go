// Package session tracks the live connections served by a mounted handler.
// Each connection owns one engine; a session records who it belongs to and
// when it last carried an event.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"
)

// DefaultIdleTimeout is used when NewManager is given no timeout.
const DefaultIdleTimeout = 30 * time.Minute

// Session is one live connection.
type Session struct {
	ID         string
	RemoteAddr string
	CreatedAt  time.Time
	LastAccess time.Time
	Events     int
}

// Manager handles session lifecycle
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	idle     time.Duration
}

// NewManager creates a manager that considers a session expired after idle
// without events.
func NewManager(idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}

	return &Manager{
		sessions: make(map[string]*Session),
		idle:     idle,
	}
}

// IdleTimeout returns how long a session may go without events.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idle
}

// Open registers a new connection from remoteAddr.
func (m *Manager) Open(remoteAddr string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		ID:         id,
		RemoteAddr: remoteAddr,
		CreatedAt:  now,
		LastAccess: now,
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	return s, nil
}

// Touch records an event on the session. It reports false when the session
// is unknown or has been idle too long, removing it in the latter case.
func (m *Manager) Touch(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	if time.Since(s.LastAccess) > m.idle {
		delete(m.sessions, id)
		return Session{}, false
	}

	s.LastAccess = time.Now()
	s.Events++
	return *s, true
}

// Get returns a copy of the session.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Close forgets the session.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns copies of the open sessions, oldest first.
func (m *Manager) List() []Session {
	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CleanupExpired removes sessions idle for longer than the timeout and
// returns their IDs.
func (m *Manager) CleanupExpired() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	cutoff := time.Now().Add(-m.idle)

	for id, s := range m.sessions {
		if s.LastAccess.Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)

	return expired
}

// generateSessionID creates a random 128-bit session ID.
func generateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
