package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	qerrors "github.com/medleyre/leasehound/internal/errors"
)

// Manager tracks live sessions by id. It hands out the one Session value
// per id; per-session locking lives inside Session itself, so two requests
// on different sessions never contend.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
}

// NewManager creates an empty session manager with no session cap.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// SetMaxSessions caps the number of live sessions. Creating a session past
// the cap evicts the least recently active one. n <= 0 means unlimited.
func (m *Manager) SetMaxSessions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxSessions = n
}

// GetOrCreate returns the session with the given id, creating it if
// needed. An empty id creates a fresh session with a generated uuid.
func (m *Manager) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.RLock()
	if s, ok := m.sessions[id]; ok {
		m.mu.RUnlock()
		return s
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check after acquiring the write lock.
	if s, ok := m.sessions[id]; ok {
		return s
	}

	if m.maxSessions > 0 {
		for len(m.sessions) >= m.maxSessions {
			m.evictOldestLocked()
		}
	}

	s := New(id)
	m.sessions[id] = s
	return s
}

// evictOldestLocked removes the least recently active session. Callers
// must hold the write lock and guarantee the map is non-empty.
func (m *Manager) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, s := range m.sessions {
		if last := s.LastActive(); oldestID == "" || last.Before(oldest) {
			oldestID = id
			oldest = last
		}
	}
	delete(m.sessions, oldestID)
}

// Get returns an existing session or a session-not-found error.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, qerrors.New(qerrors.ErrCodeSessionNotFound,
			"session not found", nil).WithDetail("session_id", id)
	}
	return s, nil
}

// Remove deletes a session. Removing a missing id is a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictStale removes sessions idle longer than idleTimeout and returns
// how many were evicted.
func (m *Manager) EvictStale(idleTimeout time.Duration) int {
	if idleTimeout <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-idleTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}
