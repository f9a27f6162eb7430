package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nlpd/internal/client"
	"nlpd/pkg/types"
)

type session struct {
	id      string
	client  *client.Client
	created time.Time
}

// CreateSession opens a session with its own orchestration client.
func (m *Manager) CreateSession() (types.SessionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.SessionResponse{}, tooBusyError{reason: "shutting down"}
	}
	if len(m.sessions) >= m.maxSessions {
		return types.SessionResponse{}, tooBusyError{reason: fmt.Sprintf("session limit %d reached", m.maxSessions)}
	}
	s := &session{id: uuid.NewString(), client: m.newClient(), created: time.Now()}
	m.sessions[s.id] = s
	m.log.Debug().Str("event", "session_open").Str("session", s.id).Msg("manager")
	return types.SessionResponse{ID: s.id}, nil
}

func (m *Manager) session(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound(id)
	}
	return s, nil
}

// Session returns the session's current state.
func (m *Manager) Session(id string) (types.AIState, error) {
	s, err := m.session(id)
	if err != nil {
		return types.AIState{}, err
	}
	return s.client.State(), nil
}

// RunSession starts a run in the session and returns the state right after
// dispatch. A session runs one thing at a time: starting a run while the
// previous one is loading is a conflict; call ResetSession first to abandon
// it.
func (m *Manager) RunSession(id string, req types.RunTaskRequest) (types.AIState, error) {
	s, err := m.session(id)
	if err != nil {
		return types.AIState{}, err
	}
	p, err := m.validate(req)
	if err != nil {
		return types.AIState{}, err
	}
	if st := s.client.State(); st.Status == types.StatusLoading {
		return st, runInFlightError{id: id, runID: st.RunID}
	}
	if !s.client.RunTask(p.ID, req.Text) {
		// closed concurrently
		return types.AIState{}, ErrSessionNotFound(id)
	}
	st := s.client.State()
	if st.Status == types.StatusError && dispatchFailure(st.Error) {
		return st, stateError(st)
	}
	return st, nil
}

// ResetSession returns the session to idle. Responses of an abandoned run
// are discarded when they arrive.
func (m *Manager) ResetSession(id string) (types.AIState, error) {
	s, err := m.session(id)
	if err != nil {
		return types.AIState{}, err
	}
	s.client.Reset()
	return s.client.State(), nil
}

// WatchSession calls emit with the current state and then with every state
// change until the state is terminal, emit fails or ctx is done.
func (m *Manager) WatchSession(ctx context.Context, id string, emit func(types.AIState) error) error {
	s, err := m.session(id)
	if err != nil {
		return err
	}
	ch, unsubscribe := s.client.Subscribe()
	defer unsubscribe()

	st := s.client.State()
	if err := emit(st); err != nil || st.Terminal() {
		return err
	}
	last := st
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-ch:
			if !ok {
				return nil
			}
			if sameState(st, last) {
				continue
			}
			last = st
			if err := emit(st); err != nil || st.Terminal() {
				return err
			}
		}
	}
}

// CloseSession closes and forgets a session.
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound(id)
	}
	s.client.Close()
	m.log.Debug().Str("event", "session_close").Str("session", s.id).Msg("manager")
	return nil
}

// Sessions returns the number of open sessions.
func (m *Manager) Sessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func sameState(a, b types.AIState) bool {
	if a.Status != b.Status || a.RunID != b.RunID || a.Error != b.Error {
		return false
	}
	if a.Progress == nil || b.Progress == nil {
		return a.Progress == b.Progress
	}
	return *a.Progress == *b.Progress
}
