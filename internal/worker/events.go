package worker

import "sync"

// Event names published by the worker.
const (
	EventLoadStart  = "load_start"
	EventLoadReady  = "load_ready"
	EventLoadError  = "load_error"
	EventInferStart = "infer_start"
	EventInferDone  = "infer_done"
	EventInferError = "infer_error"
)

// Event represents a worker lifecycle event.
type Event struct {
	Name     string
	RunID    uint64
	ModelRef string
	Fields   map[string]any
}

// EventPublisher receives events from the worker. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns the event names in publish order.
func (p *MemoryPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name
	}
	return out
}
