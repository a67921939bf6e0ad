// Package httpapi exposes the kernel's session API over HTTP: a thin
// chi router for request/reply endpoints, per-client rate limiting, and
// a WebSocket stream for turn-loop events. Grounded on
// josephblackelite-nhbchain/gateway/routes/router.go's router
// composition and gateway/middleware/ratelimit.go's limiter.
package httpapi

import (
	"fmt"
	"sync"

	"github.com/dawsonblock/rfsn-kernel/internal/session"
)

// Manager owns every live Session, keyed by session ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	newFn    func() (*session.Session, error)
}

// NewManager builds a Manager that creates sessions via newFn (so the
// caller controls policy, working directory, reasoner, and every other
// session.Config field without the router needing to know about them).
func NewManager(newFn func() (*session.Session, error)) *Manager {
	return &Manager{sessions: map[string]*session.Session{}, newFn: newFn}
}

// Create starts a new session and returns it.
func (m *Manager) Create() (*session.Session, error) {
	s, err := m.newFn()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.SessionID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session for id, if any.
func (m *Manager) Get(id string) (*session.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes a session from the manager. It does not affect files
// the session has already written (ledger, memory db).
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var errNotFound = fmt.Errorf("session not found")
