package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"nlpd/pkg/types"
)

// fakeProvider is a lightweight in-memory provider used for tests.
type fakeProvider struct {
	mu       sync.Mutex
	loads    []string
	loadErr  error
	progress []ProgressEvent
	output   any
	invokeFn func(text string, opts InvokeOptions) (any, error)
	opts     []InvokeOptions
	closed   int
	block    chan struct{}
}

func (f *fakeProvider) Load(ctx context.Context, kind, ref string, opts LoadOptions) (Pipeline, error) {
	f.mu.Lock()
	f.loads = append(f.loads, kind+"|"+ref)
	f.mu.Unlock()
	for _, ev := range f.progress {
		if opts.OnProgress != nil {
			opts.OnProgress(ev)
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return &fakePipeline{f: f}, nil
}

func (f *fakeProvider) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

type fakePipeline struct{ f *fakeProvider }

func (p *fakePipeline) Invoke(ctx context.Context, text string, opts InvokeOptions) (any, error) {
	p.f.mu.Lock()
	p.f.opts = append(p.f.opts, opts)
	fn, out := p.f.invokeFn, p.f.output
	p.f.mu.Unlock()
	if fn != nil {
		return fn(text, opts)
	}
	return out, nil
}

func (p *fakePipeline) Close() error {
	p.f.mu.Lock()
	p.f.closed++
	p.f.mu.Unlock()
	return nil
}

func sentimentOut() any {
	return []map[string]any{{"label": "POSITIVE", "score": 0.9}, {"label": "NEGATIVE", "score": 0.1}}
}

func startWorker(t *testing.T, p Provider, pub EventPublisher) *Worker {
	t.Helper()
	w := New(p, Config{Publisher: pub})
	w.Start(context.Background())
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func runReq(id uint64, task types.TaskID) types.RunRequest {
	kinds := map[types.TaskID]string{
		types.TaskSentiment:     "sentiment-analysis",
		types.TaskNER:           "token-classification",
		types.TaskSummarization: "summarization",
	}
	return types.RunRequest{
		Type:         types.RequestRun,
		RunID:        id,
		TaskID:       task,
		Text:         "some text",
		ModelRef:     "test/" + string(task),
		PipelineKind: kinds[task],
		Quantized:    true,
	}
}

// collect reads responses until the terminal one for a run.
func collect(t *testing.T, w *Worker) []types.RunResponse {
	t.Helper()
	var out []types.RunResponse
	timeout := time.After(2 * time.Second)
	for {
		select {
		case r, ok := <-w.Responses():
			if !ok {
				t.Fatalf("responses closed after %d messages", len(out))
			}
			out = append(out, r)
			if r.Terminal() {
				return out
			}
		case <-timeout:
			t.Fatalf("timed out after %d messages", len(out))
		}
	}
}
