// Package worker runs inference off the caller's goroutine.
//
// A Worker is an actor: one goroutine drains a request queue, loads each
// (pipeline kind, model) pair at most once into its PipelineCache, invokes
// the pipeline and replies on a response channel. Callers never share memory
// with it; RunRequest and RunResponse values are the only things exchanged.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nlpd/pkg/types"
)

// ErrQueueFull is returned by Post when the request queue is at capacity.
var ErrQueueFull = errors.New("worker queue full")

const fallbackMessage = "An error occurred during inference."

// Worker states reported by Status.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateStopped = "stopped"
)

type Worker struct {
	provider Provider
	cfg      Config
	cache    *PipelineCache
	pub      EventPublisher
	log      zerolog.Logger

	reqs chan types.RunRequest
	out  chan types.RunResponse

	// mu guards the fields below and orders Post against Stop.
	mu      sync.RWMutex
	state   string
	cancel  context.CancelFunc
	exited  chan struct{}
	loads   uint64
	runs    uint64
	lastErr string
}

// New constructs a Worker. Call Start to begin processing.
func New(provider Provider, cfg Config) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		provider: provider,
		cfg:      cfg,
		cache:    cfg.Cache,
		pub:      cfg.Publisher,
		log:      cfg.Logger.With().Str("component", "worker").Logger(),
		reqs:     make(chan types.RunRequest, cfg.QueueDepth),
		out:      make(chan types.RunResponse, defaultResponseBuf),
		state:    StateIdle,
	}
}

// Start launches the actor goroutine. It is a no-op if the worker is already
// running or stopped.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateIdle {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.exited = make(chan struct{})
	w.state = StateRunning
	go w.loop(ctx)
}

// Post enqueues a request without blocking.
func (w *Worker) Post(req types.RunRequest) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.state == StateStopped {
		return ErrStopped
	}
	select {
	case w.reqs <- req:
		queueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Responses returns the channel carrying every response, in send order. It
// is closed by Stop.
func (w *Worker) Responses() <-chan types.RunResponse { return w.out }

// Cache exposes the worker's pipeline cache.
func (w *Worker) Cache() *PipelineCache { return w.cache }

// Ready reports whether the worker accepts requests.
func (w *Worker) Ready() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state == StateRunning
}

// Stop cancels the actor, waits for it to exit, closes cached pipelines and
// the response channel. In-flight work observes the cancellation through its
// context. Stop is idempotent.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.state == StateStopped {
		w.mu.Unlock()
		return nil
	}
	prev := w.state
	w.state = StateStopped
	cancel, exited := w.cancel, w.exited
	w.mu.Unlock()

	if prev == StateRunning {
		cancel()
		<-exited
	}
	for len(w.reqs) > 0 {
		<-w.reqs
		queueDepth.Dec()
	}
	err := w.cache.closeAll()
	close(w.out)
	w.log.Info().Str("event", "stopped").Err(err).Msg("worker")
	return err
}

// Status builds a snapshot for /status.
func (w *Worker) Status() types.StatusResponse {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return types.StatusResponse{
		Pipelines:  w.cache.snapshot(),
		State:      w.state,
		QueueLen:   len(w.reqs),
		LoadsTotal: w.loads,
		RunsTotal:  w.runs,
		LastError:  w.lastErr,
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.exited)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.reqs:
			queueDepth.Dec()
			w.send(ctx, w.run(ctx, req))
		}
	}
}

func (w *Worker) send(ctx context.Context, resp types.RunResponse) {
	select {
	case w.out <- resp:
	case <-ctx.Done():
	}
}

// run processes one request and returns its terminal response. Progress
// responses are sent while loading.
func (w *Worker) run(ctx context.Context, req types.RunRequest) (resp types.RunResponse) {
	defer func() {
		if r := recover(); r != nil {
			resp = w.fail(req, ErrInference(fmt.Errorf("pipeline panic: %v", r)))
		}
	}()
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()

	if strings.TrimSpace(req.ModelRef) == "" || strings.TrimSpace(req.PipelineKind) == "" {
		return w.fail(req, ErrConfiguration("modelRef and pipelineKind are required."))
	}
	if !req.TaskID.Valid() {
		return w.fail(req, ErrConfiguration("unknown task %q.", req.TaskID))
	}

	key := cacheKey{kind: req.PipelineKind, ref: req.ModelRef}
	p, warm := w.cache.get(key)
	var loadMs *float64
	if warm {
		cacheHitsTotal.WithLabelValues(string(req.TaskID)).Inc()
	} else {
		var (
			d   time.Duration
			err error
		)
		p, d, err = w.load(ctx, key, req)
		if err != nil {
			return w.fail(req, err)
		}
		ms := millis(d)
		loadMs = &ms
	}

	w.log.Debug().Str("event", "infer_start").Uint64("run_id", req.RunID).Str("task", string(req.TaskID)).Msg("worker")
	w.pub.Publish(Event{Name: EventInferStart, RunID: req.RunID, ModelRef: req.ModelRef, Fields: map[string]any{"task": string(req.TaskID), "warm": warm}})

	ictx, cancel := context.WithTimeout(ctx, w.cfg.InferTimeout)
	defer cancel()
	start := time.Now()
	raw, err := p.Invoke(ictx, req.Text, OptionsFor(req.TaskID))
	d := time.Since(start)
	inferenceSeconds.WithLabelValues(string(req.TaskID)).Observe(d.Seconds())
	if err != nil {
		w.pub.Publish(Event{Name: EventInferError, RunID: req.RunID, ModelRef: req.ModelRef, Fields: map[string]any{"error": err.Error()}})
		return w.fail(req, ErrInference(err))
	}
	out, err := sanitize(req.TaskID, raw)
	if err != nil {
		w.pub.Publish(Event{Name: EventInferError, RunID: req.RunID, ModelRef: req.ModelRef, Fields: map[string]any{"error": err.Error()}})
		return w.fail(req, ErrInference(err))
	}
	w.log.Info().Str("event", "infer_done").Uint64("run_id", req.RunID).Str("task", string(req.TaskID)).
		Dur("dur", d).Bool("warm", warm).Msg("worker")
	w.pub.Publish(Event{Name: EventInferDone, RunID: req.RunID, ModelRef: req.ModelRef, Fields: map[string]any{"dur_ms": millis(d)}})
	return types.NewResultResponse(req.RunID, out, types.Metrics{InferenceTimeMs: millis(d), LoadTimeMs: loadMs})
}

func (w *Worker) load(ctx context.Context, key cacheKey, req types.RunRequest) (Pipeline, time.Duration, error) {
	w.log.Info().Str("event", "load_start").Uint64("run_id", req.RunID).Str("model", req.ModelRef).Str("kind", req.PipelineKind).Msg("worker")
	w.pub.Publish(Event{Name: EventLoadStart, RunID: req.RunID, ModelRef: req.ModelRef, Fields: map[string]any{"kind": req.PipelineKind}})

	lctx := ctx
	if w.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, w.cfg.LoadTimeout)
		defer cancel()
	}
	opts := LoadOptions{
		Quantized: req.Quantized,
		OnProgress: func(ev ProgressEvent) {
			if !forwardProgress(ev) {
				return
			}
			w.send(ctx, types.NewProgressResponse(req.RunID, types.Progress{
				File:       ev.File,
				Percentage: clampPercent(ev.Progress),
				Phase:      ev.Status,
			}))
		},
	}
	start := time.Now()
	p, err := w.provider.Load(lctx, req.PipelineKind, req.ModelRef, opts)
	d := time.Since(start)
	if err == nil && p == nil {
		err = errors.New("provider returned no pipeline")
	}
	if err != nil {
		w.pub.Publish(Event{Name: EventLoadError, RunID: req.RunID, ModelRef: req.ModelRef, Fields: map[string]any{"error": err.Error()}})
		return nil, d, ErrLoad(req.ModelRef, err)
	}
	w.cache.put(key, p, d)
	loadsTotal.WithLabelValues(string(req.TaskID)).Inc()
	loadSeconds.WithLabelValues(string(req.TaskID)).Observe(d.Seconds())
	w.mu.Lock()
	w.loads++
	w.mu.Unlock()
	w.log.Info().Str("event", "load_ready").Str("model", req.ModelRef).Dur("dur", d).Msg("worker")
	w.pub.Publish(Event{Name: EventLoadReady, RunID: req.RunID, ModelRef: req.ModelRef, Fields: map[string]any{"dur_ms": millis(d)}})
	return p, d, nil
}

// fail records err and returns the error response for req.
func (w *Worker) fail(req types.RunRequest, err error) types.RunResponse {
	msg := err.Error()
	if msg == "" {
		msg = fallbackMessage
	}
	errorsTotal.WithLabelValues(errorKind(err)).Inc()
	w.mu.Lock()
	w.lastErr = msg
	w.mu.Unlock()
	w.log.Warn().Str("event", "run_error").Uint64("run_id", req.RunID).Str("kind", errorKind(err)).Err(err).Msg("worker")
	return types.NewErrorResponse(req.RunID, msg)
}

// forwardProgress keeps byte progress of weight artifacts only; tokenizer
// and config downloads are not surfaced.
func forwardProgress(ev ProgressEvent) bool {
	if ev.Status != "progress" {
		return false
	}
	return strings.Contains(ev.File, "onnx") || strings.Contains(ev.File, "model")
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
