package gateway

import (
	"sync"
	"time"

	"github.com/kcenon/common-game-server/internal/auth"
)

// SessionManager is a thread-safe tracker of connected gateway clients
// through their lifecycle: Unauthenticated -> Authenticated -> (optionally
// Migrating) -> removed on disconnect.
type SessionManager struct {
	maxSessions uint32

	mu       sync.Mutex
	sessions map[SessionID]*ClientSession
}

// NewSessionManager returns a SessionManager capped at maxSessions
// concurrent connections.
func NewSessionManager(maxSessions uint32) *SessionManager {
	return &SessionManager{
		maxSessions: maxSessions,
		sessions:    make(map[SessionID]*ClientSession),
	}
}

// CreateSession registers a new unauthenticated session. Returns false if
// the connection limit is reached or the session ID is already in use.
func (m *SessionManager) CreateSession(id SessionID, remoteAddress string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if uint32(len(m.sessions)) >= m.maxSessions {
		return false
	}
	if _, exists := m.sessions[id]; exists {
		return false
	}

	now := time.Now()
	m.sessions[id] = &ClientSession{
		SessionID:     id,
		State:         StateUnauthenticated,
		RemoteAddress: remoteAddress,
		ConnectedAt:   now,
		LastActivity:  now,
	}
	return true
}

// AuthenticateSession promotes a session from Unauthenticated to
// Authenticated. Returns false if the session doesn't exist or isn't in the
// Unauthenticated state.
func (m *SessionManager) AuthenticateSession(id SessionID, claims auth.TokenClaims, userID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.State != StateUnauthenticated {
		return false
	}

	s.State = StateAuthenticated
	s.Claims = claims
	s.UserID = userID
	s.LastActivity = time.Now()
	return true
}

// BeginMigration transitions an Authenticated session to Migrating.
func (m *SessionManager) BeginMigration(id SessionID, targetService string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.State != StateAuthenticated {
		return false
	}

	s.State = StateMigrating
	s.CurrentService = targetService
	s.LastActivity = time.Now()
	return true
}

// CompleteMigration transitions a Migrating session back to Authenticated.
func (m *SessionManager) CompleteMigration(id SessionID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || s.State != StateMigrating {
		return false
	}

	s.State = StateAuthenticated
	s.LastActivity = time.Now()
	return true
}

// RemoveSession drops a session on disconnect.
func (m *SessionManager) RemoveSession(id SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// GetSession returns a copy of the session's current state, if present.
func (m *SessionManager) GetSession(id SessionID) (ClientSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ClientSession{}, false
	}
	return *s, true
}

// TouchSession refreshes a session's last-activity timestamp.
func (m *SessionManager) TouchSession(id SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastActivity = time.Now()
	}
}

// SetCurrentService updates the downstream service currently handling a
// session's traffic.
func (m *SessionManager) SetCurrentService(id SessionID, service string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.CurrentService = service
	return true
}

// SessionsByState returns a snapshot of all sessions in the given state.
func (m *SessionManager) SessionsByState(state ClientState) []ClientSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ClientSession
	for _, s := range m.sessions {
		if s.State == state {
			out = append(out, *s)
		}
	}
	return out
}

// SessionCount returns the total number of tracked sessions.
func (m *SessionManager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SessionCountByState returns the number of sessions in the given state.
func (m *SessionManager) SessionCountByState(state ClientState) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, s := range m.sessions {
		if s.State == state {
			count++
		}
	}
	return count
}

// FindIdleSessions returns authenticated sessions whose last activity
// predates now-idleTimeout.
func (m *SessionManager) FindIdleSessions(idleTimeout time.Duration) []SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-idleTimeout)
	var out []SessionID
	for id, s := range m.sessions {
		if s.State == StateAuthenticated && s.LastActivity.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

// FindExpiredAuthSessions returns unauthenticated sessions that connected
// before now-authTimeout and never authenticated.
func (m *SessionManager) FindExpiredAuthSessions(authTimeout time.Duration) []SessionID {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-authTimeout)
	var out []SessionID
	for id, s := range m.sessions {
		if s.State == StateUnauthenticated && s.ConnectedAt.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}
