// Package resultcache memoizes finished inference results for the one-shot
// API so that repeated requests for the same task, model and text skip the
// worker.
package resultcache

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"nlpd/pkg/types"
)

// DefaultTTL is used when New is given a zero TTL.
const DefaultTTL = 2 * time.Minute

// DefaultRunTimeout bounds a shared computation whose first caller had no
// deadline.
const DefaultRunTimeout = 5 * time.Minute

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nlpd",
			Subsystem: "resultcache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by outcome (hit, miss, shared).",
		}, []string{"outcome"},
	)
	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nlpd",
			Subsystem: "resultcache",
			Name:      "entries",
			Help:      "Results currently held.",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups, cacheEntries)
}

// Entry is a cached run result.
type Entry struct {
	Output  types.Output
	Metrics types.Metrics
}

// Stats are cumulative lookup counters.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Shared uint64 `json:"shared"`
	Len    int    `json:"len"`
}

// Cache is a TTL cache with in-flight deduplication. A nil *Cache is valid
// and never caches.
type Cache struct {
	cache *ttlcache.Cache[string, Entry]
	sf    singleflight.Group
	log   zerolog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
	shared atomic.Uint64
}

// New starts a cache. ttl < 0 disables caching and returns nil.
func New(ttl time.Duration, logger *zerolog.Logger) *Cache {
	if ttl < 0 {
		return nil
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		cache: ttlcache.New(ttlcache.WithTTL[string, Entry](ttl)),
		log:   zerolog.Nop(),
	}
	if logger != nil {
		c.log = *logger
	}
	c.cache.OnEviction(func(context.Context, ttlcache.EvictionReason, *ttlcache.Item[string, Entry]) {
		cacheEntries.Set(float64(c.cache.Len()))
	})
	go c.cache.Start()
	return c
}

// Key hashes the inputs that determine a result.
func Key(task types.TaskID, modelRef, text string) string {
	h := xxhash.New()
	_, _ = h.WriteString(string(task))
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(modelRef)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(text)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h.Sum64())
	return string(buf[:])
}

// Do returns the cached entry for key or computes it with fn. Concurrent
// calls for the same key share one fn invocation. fn runs on a context that
// keeps the first caller's values and deadline but not its cancellation, so
// one caller going away does not fail the others. Errors are not cached.
// The bool result reports whether the entry came from the cache.
func (c *Cache) Do(ctx context.Context, key string, fn func(context.Context) (Entry, error)) (Entry, bool, error) {
	if c == nil {
		e, err := fn(ctx)
		return e, false, err
	}
	if item := c.cache.Get(key); item != nil {
		c.hits.Add(1)
		cacheLookups.WithLabelValues("hit").Inc()
		return item.Value(), true, nil
	}
	ch := c.sf.DoChan(key, func() (any, error) {
		c.misses.Add(1)
		cacheLookups.WithLabelValues("miss").Inc()
		sctx, cancel := sharedContext(ctx)
		defer cancel()
		e, err := fn(sctx)
		if err != nil {
			return Entry{}, err
		}
		c.cache.Set(key, e, ttlcache.DefaultTTL)
		cacheEntries.Set(float64(c.cache.Len()))
		return e, nil
	})
	select {
	case <-ctx.Done():
		return Entry{}, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Entry{}, false, r.Err
		}
		if r.Shared {
			c.shared.Add(1)
			cacheLookups.WithLabelValues("shared").Inc()
			c.log.Debug().Str("event", "singleflight_shared").Msg("resultcache")
		}
		return r.Val.(Entry), false, nil
	}
}

// sharedContext detaches ctx from its cancellation and re-applies its
// deadline, or DefaultRunTimeout when it has none.
func sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if dl, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, dl)
	}
	return context.WithTimeout(detached, DefaultRunTimeout)
}

// Stats returns lookup counters.
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Shared: c.shared.Load(), Len: c.cache.Len()}
}

// Close stops the expiry loop.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.cache.Stop()
}
