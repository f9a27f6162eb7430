// Package client drives a worker boundary from the caller's side and exposes
// the result as a small state machine: idle, loading, ready or error.
package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"nlpd/internal/registry"
	"nlpd/pkg/types"
)

// ErrClosed is returned by Await once the client has been closed.
var ErrClosed = errors.New("client closed")

const unknownError = "Unknown error"

// Boundary is the message channel to a worker. *worker.Worker and
// *worker.Port both satisfy it.
type Boundary interface {
	Post(types.RunRequest) error
	Responses() <-chan types.RunResponse
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client tracks the latest run issued through a Boundary. Responses for any
// other run are discarded, so a Reset or a newer run is never overwritten by
// a superseded one.
type Client struct {
	b   Boundary
	reg *registry.Registry
	log zerolog.Logger

	mu      sync.Mutex
	state   types.AIState
	latest  uint64
	changed chan struct{}
	subs    map[chan types.AIState]struct{}
	closed  bool

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New constructs a Client and starts its receive loop.
func New(b Boundary, reg *registry.Registry, opts ...Option) *Client {
	c := &Client{
		b:       b,
		reg:     reg,
		log:     zerolog.Nop(),
		state:   types.AIState{Status: types.StatusIdle},
		changed: make(chan struct{}),
		subs:    make(map[chan types.AIState]struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	go c.receive()
	return c
}

// RunTask starts a run of task on text. It returns false without sending
// anything when text is blank, the task is unknown or the client is closed.
// A failure to hand the request to the worker moves the client to error.
func (c *Client) RunTask(task types.TaskID, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	p, ok := c.reg.Lookup(task)
	if !ok {
		c.log.Debug().Str("event", "unknown_task").Str("task", string(task)).Msg("client")
		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.latest++
	id := c.latest
	c.state = types.AIState{Status: types.StatusLoading, RunID: id, Task: task}
	c.notifyLocked()
	c.mu.Unlock()

	err := c.b.Post(types.RunRequest{
		Type:         types.RequestRun,
		RunID:        id,
		TaskID:       task,
		Text:         text,
		ModelRef:     p.ModelRef,
		PipelineKind: p.PipelineKind,
		Quantized:    p.Quantized,
	})
	if err != nil {
		c.log.Warn().Str("event", "post_error").Uint64("run_id", id).Err(err).Msg("client")
		c.mu.Lock()
		if c.latest == id && c.state.Status == types.StatusLoading {
			c.state.Status = types.StatusError
			c.state.Error = err.Error()
			c.state.Progress = nil
			c.notifyLocked()
		}
		c.mu.Unlock()
	}
	return true
}

// Reset returns the client to idle with every field cleared. It does not
// stop work already handed to the worker; its responses are discarded.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.state
	c.state = types.AIState{Status: types.StatusIdle}
	if prev != c.state {
		c.notifyLocked()
	}
}

// State returns a snapshot of the current state.
func (c *Client) State() types.AIState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Downloading reports loading with a progress snapshot, i.e. the model is
// still being fetched.
func (c *Client) Downloading() bool {
	s := c.State()
	return s.Status == types.StatusLoading && s.Progress != nil
}

// Processing reports loading without progress: warm pipeline or inference
// in progress.
func (c *Client) Processing() bool {
	s := c.State()
	return s.Status == types.StatusLoading && s.Progress == nil
}

// Await blocks until the client leaves the loading state or ctx is done.
func (c *Client) Await(ctx context.Context) (types.AIState, error) {
	for {
		c.mu.Lock()
		s, ch, closed := c.state, c.changed, c.closed
		c.mu.Unlock()
		if s.Status != types.StatusLoading {
			return s, nil
		}
		if closed {
			return s, ErrClosed
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}

// Subscribe returns a channel receiving state snapshots after every change.
// A slow subscriber only ever misses intermediate states: the most recent
// snapshot replaces any undelivered one. The returned func unsubscribes.
func (c *Client) Subscribe() (<-chan types.AIState, func()) {
	ch := make(chan types.AIState, 1)
	c.mu.Lock()
	if c.subs == nil {
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	c.subs[ch] = struct{}{}
	c.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[ch]; ok && c.subs != nil {
				delete(c.subs, ch)
				close(ch)
			}
		})
	}
}

// Close stops the receive loop and closes subscriptions. A boundary with a
// Close method (such as a worker port) is closed too; a worker is not.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.stop)
		c.mu.Unlock()
		<-c.done

		if cl, ok := c.b.(interface{ Close() }); ok {
			cl.Close()
		}
		c.mu.Lock()
		for ch := range c.subs {
			close(ch)
		}
		c.subs = nil
		c.notifyLocked()
		c.mu.Unlock()
	})
}

func (c *Client) receive() {
	defer close(c.done)
	in := c.b.Responses()
	for {
		select {
		case <-c.stop:
			return
		case resp, ok := <-in:
			if !ok {
				c.boundaryClosed()
				return
			}
			c.apply(resp)
		}
	}
}

func (c *Client) apply(resp types.RunResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if resp.RunID != c.latest || c.state.Status != types.StatusLoading {
		c.log.Debug().Str("event", "stale_response").Uint64("run_id", resp.RunID).
			Uint64("latest", c.latest).Str("type", string(resp.Type)).Msg("client")
		return
	}
	switch resp.Type {
	case types.ResponseProgress:
		if resp.Progress == nil {
			return
		}
		p := *resp.Progress
		c.state.Progress = &p
	case types.ResponseResult:
		c.state.Status = types.StatusReady
		c.state.Result = resp.Data
		c.state.Metrics = resp.Metrics
		c.state.Progress = nil
	case types.ResponseError:
		c.state.Status = types.StatusError
		c.state.Error = resp.Message
		if c.state.Error == "" {
			c.state.Error = unknownError
		}
		c.state.Progress = nil
	default:
		return
	}
	c.notifyLocked()
}

func (c *Client) boundaryClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.state.Status == types.StatusLoading {
		c.state.Status = types.StatusError
		c.state.Error = "worker stopped"
		c.state.Progress = nil
	}
	c.notifyLocked()
}

// notifyLocked wakes Await callers and pushes the state to subscribers.
// c.mu must be held.
func (c *Client) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
	s := c.state
	for ch := range c.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
