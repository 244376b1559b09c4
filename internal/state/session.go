package state

import (
	"context"
	"sync"

	"github.com/scopewise/scopewise/internal/api"
	"github.com/scopewise/scopewise/internal/model/scoping"
)

// SessionState is the single source of truth, within one client instance,
// for the current session and the current user's session list. Fetch
// failures are absorbed into the stored error and never blank previously
// loaded data; callers read the outcome through the accessors.
type SessionState struct {
	client *api.Client

	mu       sync.RWMutex
	current  scoping.Session
	sessions []scoping.Session
	loading  bool
	err      error
}

// NewSessionState builds an empty session store around an API client.
func NewSessionState(client *api.Client) *SessionState {
	return &SessionState{client: client}
}

// CreateNewSession creates a session and makes it current. On failure the
// previous current session is left untouched.
func (s *SessionState) CreateNewSession(ctx context.Context, userID, projectName, description string) {
	s.setLoading(true)
	defer s.setLoading(false)

	session, err := s.client.CreateSession(ctx, scoping.CreateSessionRequest{
		UserID:      userID,
		ProjectName: projectName,
		Description: description,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return
	}
	s.current = session
	s.err = nil
}

// ListUserSessions fetches and stores the user's session list. The current
// session is not touched.
func (s *SessionState) ListUserSessions(ctx context.Context, userID string) {
	s.setLoading(true)
	defer s.setLoading(false)

	sessions, err := s.client.ListSessions(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return
	}
	s.sessions = sessions
	s.err = nil
}

// GetSessionDetails fetches one session and makes it current. A 404 (or any
// other failure) stores the error and keeps the prior current session.
func (s *SessionState) GetSessionDetails(ctx context.Context, id string) {
	s.setLoading(true)
	defer s.setLoading(false)

	session, err := s.client.GetSession(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return
	}
	s.current = session
	s.err = nil
}

// DeleteCurrentSession deletes a session by id. Deleting an id that is
// already gone is not an error. When the deleted id matches the current
// session, the current session is cleared.
func (s *SessionState) DeleteCurrentSession(ctx context.Context, id string) {
	s.setLoading(true)
	defer s.setLoading(false)

	err := s.client.DeleteSession(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.err = err
		return
	}
	if s.current.ID == id {
		s.current = scoping.Session{}
	}
	s.err = nil
}

// ClearError resets the stored error. Safe to call when no error is set.
func (s *SessionState) ClearError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

// Current returns the current session, zero-valued when none is set.
func (s *SessionState) Current() scoping.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Sessions returns the most recently fetched session list.
func (s *SessionState) Sessions() []scoping.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]scoping.Session, len(s.sessions))
	copy(copied, s.sessions)
	return copied
}

// SessionID returns the current session's id, or "" when none is set.
func (s *SessionState) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.ID
}

// Status returns the current session's status, or "" when none is set.
func (s *SessionState) Status() scoping.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Status
}

// Err returns the stored error from the most recent failed operation.
func (s *SessionState) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loading reports whether an operation is in flight. Overlapping operations
// resolve last-write-wins, so the flag is advisory, not a mutex.
func (s *SessionState) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *SessionState) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
