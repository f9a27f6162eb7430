package worker

import (
	"errors"
	"sync"

	"nlpd/pkg/types"
)

// ErrPortClosed is returned by Port.Post after the port was closed.
var ErrPortClosed = errors.New("port closed")

const portBuffer = 32

// Mux shares one Worker between many clients. Each client attaches a Port,
// which behaves like a private worker boundary with its own run-id space;
// the Mux rewrites run ids on the way in and routes responses back.
type Mux struct {
	w *Worker

	mu     sync.Mutex
	nextID uint64
	routes map[uint64]route
	ports  map[*Port]struct{}
	closed bool
	done   chan struct{}
}

type route struct {
	port  *Port
	local uint64
}

// NewMux starts routing the worker's responses. It must be the only
// consumer of w.Responses().
func NewMux(w *Worker) *Mux {
	m := &Mux{
		w:      w,
		routes: make(map[uint64]route),
		ports:  make(map[*Port]struct{}),
		done:   make(chan struct{}),
	}
	go m.dispatch()
	return m
}

// Attach returns a new port.
func (m *Mux) Attach() *Port {
	p := &Port{m: m, out: make(chan types.RunResponse, portBuffer), done: make(chan struct{})}
	m.mu.Lock()
	if m.closed {
		close(p.out)
		close(p.done)
		p.closed = true
		p.outClosed = true
	} else {
		m.ports[p] = struct{}{}
	}
	m.mu.Unlock()
	return p
}

// Worker returns the shared worker.
func (m *Mux) Worker() *Worker { return m.w }

// Ports returns the number of attached ports.
func (m *Mux) Ports() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ports)
}

// Done is closed once the worker's response channel is closed and every
// port has been shut.
func (m *Mux) Done() <-chan struct{} { return m.done }

func (m *Mux) post(p *Port, req types.RunRequest) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrStopped
	}
	m.nextID++
	global := m.nextID
	m.routes[global] = route{port: p, local: req.RunID}
	m.mu.Unlock()

	req.RunID = global
	if err := m.w.Post(req); err != nil {
		m.mu.Lock()
		delete(m.routes, global)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Mux) dispatch() {
	defer close(m.done)
	for resp := range m.w.Responses() {
		m.mu.Lock()
		rt, ok := m.routes[resp.RunID]
		if ok && resp.Terminal() {
			delete(m.routes, resp.RunID)
		}
		m.mu.Unlock()
		if !ok {
			continue
		}
		resp.RunID = rt.local
		rt.port.deliver(resp)
	}
	m.mu.Lock()
	m.closed = true
	ports := m.ports
	m.ports = nil
	m.routes = nil
	m.mu.Unlock()
	for p := range ports {
		p.shut()
	}
}

func (m *Mux) detach(p *Port) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ports != nil {
		delete(m.ports, p)
	}
	for id, rt := range m.routes {
		if rt.port == p {
			delete(m.routes, id)
		}
	}
}

// Port is one client's view of a shared worker.
type Port struct {
	m   *Mux
	out chan types.RunResponse

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	// sendMu serializes deliver against closing out.
	sendMu    sync.Mutex
	outClosed bool
}

// Post forwards req to the shared worker.
func (p *Port) Post(req types.RunRequest) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPortClosed
	}
	return p.m.post(p, req)
}

// Responses carries this port's responses with the caller's run ids.
func (p *Port) Responses() <-chan types.RunResponse { return p.out }

// Close detaches the port and closes its Responses channel. Responses
// still in flight for it are discarded.
func (p *Port) Close() {
	p.m.detach(p)
	p.finish()
}

// shut is called by the dispatcher when the worker has stopped.
func (p *Port) shut() { p.finish() }

// finish closes done before taking sendMu so that a blocked deliver
// returns and releases it; out is closed once, with no send in progress.
func (p *Port) finish() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()

	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if !p.outClosed {
		p.outClosed = true
		close(p.out)
	}
}

// Done is closed when the port is closed or the worker stops.
func (p *Port) Done() <-chan struct{} { return p.done }

// deliver blocks until the port's consumer accepts resp or the port closes,
// so terminal responses are never dropped for a live port.
func (p *Port) deliver(resp types.RunResponse) {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if p.outClosed {
		return
	}
	select {
	case p.out <- resp:
	case <-p.done:
	}
}
