package manager

import (
	"context"
	"strings"

	"nlpd/internal/reconcile"
	"nlpd/internal/resultcache"
	"nlpd/internal/sentiment"
	"nlpd/pkg/types"
)

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

// Infer runs a task to completion on a throwaway client and decorates the
// output for presentation: reconciled fragments for ner, a verdict and
// trigger words for sentiment. Identical requests within the result cache
// TTL are answered from the cache.
func (m *Manager) Infer(ctx context.Context, req types.RunTaskRequest) (types.InferResponse, error) {
	p, err := m.validate(req)
	if err != nil {
		return types.InferResponse{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, m.runTimeout)
	defer cancel()

	key := resultcache.Key(p.ID, p.ModelRef, req.Text)
	entry, cached, err := m.cache.Do(ctx, key, func(ctx context.Context) (resultcache.Entry, error) {
		return m.runOnce(ctx, p.ID, req.Text)
	})
	if err != nil {
		return types.InferResponse{}, err
	}
	resp := Present(req.Text, entry.Output)
	resp.Cached = cached
	if !cached {
		metrics := entry.Metrics
		resp.Metrics = &metrics
	}
	return resp, nil
}

func (m *Manager) runOnce(ctx context.Context, task types.TaskID, text string) (resultcache.Entry, error) {
	c := m.newClient()
	defer c.Close()
	if !c.RunTask(task, text) {
		return resultcache.Entry{}, errNotStarted
	}
	st, err := c.Await(ctx)
	if err != nil {
		return resultcache.Entry{}, err
	}
	switch {
	case st.Status == types.StatusError:
		return resultcache.Entry{}, stateError(st)
	case st.Result == nil:
		return resultcache.Entry{}, runFailedError{msg: "run finished without a result"}
	}
	e := resultcache.Entry{Output: *st.Result}
	if st.Metrics != nil {
		e.Metrics = *st.Metrics
	}
	m.log.Debug().Str("event", "infer_done").Str("task", string(task)).Uint64("run_id", st.RunID).Msg("manager")
	return e, nil
}

// Present builds the presentation view of an output: reconciled fragments
// for ner, a verdict and trigger words for sentiment.
func Present(text string, out types.Output) types.InferResponse {
	resp := types.InferResponse{Task: out.Task, Output: out}
	switch out.Task {
	case types.TaskNER:
		resp.Fragments = reconcile.Reconcile(text, out.Entities).Fragments
	case types.TaskSentiment:
		if v, ok := sentiment.Verdict(out.Sentiment); ok {
			resp.Verdict = &v
		}
		resp.Triggers = sentiment.Triggers(text)
	}
	return resp
}
