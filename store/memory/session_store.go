package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tmaxwell-dev/authgate"
)

// SessionStore implements authgate.SessionRecords over an in-memory map.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*authgate.Session
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*authgate.Session),
	}
}

func cloneSession(s *authgate.Session) *authgate.Session {
	cp := *s
	return &cp
}

// Insert writes a new session row.
func (s *SessionStore) Insert(ctx context.Context, session *authgate.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = cloneSession(session)
	return nil
}

// FindByID loads a session row. Expired or invalidated rows are still
// returned; liveness is the engine's call.
func (s *SessionStore) FindByID(ctx context.Context, sessionID string) (*authgate.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return cloneSession(sess), nil
	}
	return nil, authgate.ErrSessionNotFound
}

// FindByRefreshToken loads a session by exact refresh-token match.
func (s *SessionStore) FindByRefreshToken(ctx context.Context, refreshToken string) (*authgate.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.RefreshToken == refreshToken {
			return cloneSession(sess), nil
		}
	}
	return nil, authgate.ErrSessionNotFound
}

// UpdateTokens replaces the session token after a refresh. Last write wins.
func (s *SessionStore) UpdateTokens(ctx context.Context, sessionID, sessionToken string, sessionExpiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return authgate.ErrSessionNotFound
	}
	sess.SessionToken = sessionToken
	sess.SessionExpiresAt = sessionExpiresAt
	sess.UpdatedAt = time.Now()
	return nil
}

// MarkInvalid soft-deletes a session. Unknown ids succeed.
func (s *SessionStore) MarkInvalid(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.Valid = false
		sess.UpdatedAt = time.Now()
	}
	return nil
}
