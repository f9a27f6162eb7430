package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nlpd/internal/client"
	"nlpd/internal/registry"
	"nlpd/internal/resultcache"
	"nlpd/internal/worker"
	"nlpd/pkg/types"
)

type Manager struct {
	reg         *registry.Registry
	w           *worker.Worker
	mux         *worker.Mux
	cache       *resultcache.Cache
	maxSessions int
	runTimeout  time.Duration
	log         zerolog.Logger
	startTime   time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

// New builds a Manager for provider with the built-in registry.
func New(provider worker.Provider) *Manager {
	return NewWithConfig(ManagerConfig{Provider: provider})
}

// Start launches the worker. Work posted before Start waits in the queue.
func (m *Manager) Start(ctx context.Context) { m.w.Start(ctx) }

// Close closes every session, stops the worker and the result cache.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = map[string]*session{}
	m.mu.Unlock()

	for _, s := range sessions {
		s.client.Close()
	}
	err := m.w.Stop()
	<-m.mux.Done()
	m.cache.Close()
	return err
}

// Ready reports whether the worker accepts runs.
func (m *Manager) Ready() bool { return m.w.Ready() }

// Tasks returns the task profiles in registry order.
func (m *Manager) Tasks() []types.TaskProfile { return m.reg.All() }

// Registry exposes the task registry.
func (m *Manager) Registry() *registry.Registry { return m.reg }

// newClient attaches a fresh port and client to the shared worker.
func (m *Manager) newClient() *client.Client {
	return client.New(m.mux.Attach(), m.reg, client.WithLogger(m.log))
}

// validate resolves the task and rejects blank text.
func (m *Manager) validate(req types.RunTaskRequest) (types.TaskProfile, error) {
	id, err := types.ParseTaskID(string(req.Task))
	if err != nil {
		return types.TaskProfile{}, ErrInvalidRequest(err.Error())
	}
	p, ok := m.reg.Lookup(id)
	if !ok {
		return types.TaskProfile{}, ErrInvalidRequest("no profile for task " + string(id))
	}
	if isBlank(req.Text) {
		return types.TaskProfile{}, ErrInvalidRequest("text is required")
	}
	return p, nil
}

// dispatchFailure reports whether msg is a failure to hand a request to the
// worker rather than a failed run.
func dispatchFailure(msg string) bool {
	switch msg {
	case worker.ErrQueueFull.Error(), worker.ErrStopped.Error(), worker.ErrPortClosed.Error():
		return true
	}
	return false
}

// stateError converts a client in the error state into a typed error.
func stateError(st types.AIState) error {
	switch st.Error {
	case worker.ErrQueueFull.Error():
		return tooBusyError{reason: st.Error}
	case worker.ErrStopped.Error(), worker.ErrPortClosed.Error():
		return worker.ErrDependencyUnavailable(st.Error)
	}
	return runFailedError{msg: st.Error}
}

var errNotStarted = errors.New("run was not started")
