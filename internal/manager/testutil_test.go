package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nlpd/internal/provider/offline"
	"nlpd/internal/resultcache"
	"nlpd/internal/worker"
	"nlpd/pkg/types"
)

// gatedProvider wraps the offline provider; loads wait on gate when set and
// fail with loadErr when set.
type gatedProvider struct {
	mu      sync.Mutex
	gate    chan struct{}
	loadErr error
	loads   int
}

func (p *gatedProvider) Load(ctx context.Context, kind, ref string, opts worker.LoadOptions) (worker.Pipeline, error) {
	p.mu.Lock()
	p.loads++
	gate, loadErr := p.gate, p.loadErr
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return offline.New().Load(ctx, kind, ref, opts)
}

func (p *gatedProvider) loadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

func newTestManager(t *testing.T, p worker.Provider, cfg ManagerConfig) *Manager {
	t.Helper()
	cfg.Provider = p
	m := NewWithConfig(cfg)
	m.Start(context.Background())
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func withCache(t *testing.T) *resultcache.Cache {
	t.Helper()
	return resultcache.New(time.Minute, nil)
}

func waitTerminal(t *testing.T, m *Manager, id string) types.AIState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st, err := m.Session(id)
		if err != nil {
			t.Fatalf("session: %v", err)
		}
		if st.Status != types.StatusLoading {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s did not settle", id)
	return types.AIState{}
}

var errBoom = errors.New("boom")
