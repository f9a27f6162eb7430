package worker

import (
	"errors"
	"sort"
	"sync"
	"time"

	"nlpd/pkg/types"
)

// cacheKey identifies a pipeline. The quantized flag is not part of the key:
// the first load for a (kind, model) pair wins.
type cacheKey struct {
	kind string
	ref  string
}

type cacheEntry struct {
	pipeline Pipeline
	loadTime time.Duration
	uses     uint64
	lastUsed time.Time
}

// PipelineCache holds the pipelines loaded by one worker. Entries are never
// evicted; they are closed together when the worker stops. Only the worker
// goroutine mutates it; the mutex guards Status readers.
type PipelineCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*cacheEntry
}

func NewPipelineCache() *PipelineCache {
	return &PipelineCache{entries: make(map[cacheKey]*cacheEntry)}
}

func (c *PipelineCache) get(k cacheKey) (Pipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	e.uses++
	e.lastUsed = time.Now()
	return e.pipeline, true
}

func (c *PipelineCache) put(k cacheKey, p Pipeline, loadTime time.Duration) {
	c.mu.Lock()
	c.entries[k] = &cacheEntry{pipeline: p, loadTime: loadTime, uses: 1, lastUsed: time.Now()}
	c.mu.Unlock()
}

// Len returns the number of cached pipelines.
func (c *PipelineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Contains reports whether a pipeline for (kind, modelRef) is cached.
func (c *PipelineCache) Contains(kind, modelRef string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[cacheKey{kind: kind, ref: modelRef}]
	return ok
}

func (c *PipelineCache) snapshot() []types.PipelineStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.PipelineStatus, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, types.PipelineStatus{
			Kind:       k.kind,
			ModelRef:   k.ref,
			LoadTimeMs: millis(e.loadTime),
			Uses:       e.uses,
			LastUsed:   e.lastUsed.Unix(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ModelRef < out[j].ModelRef
	})
	return out
}

// closeAll closes and forgets every pipeline.
func (c *PipelineCache) closeAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for k, e := range c.entries {
		if err := e.pipeline.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.entries, k)
	}
	return errors.Join(errs...)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
