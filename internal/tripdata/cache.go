package tripdata

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"taxidash.nyctlc.dev/internal/logging"
	"taxidash.nyctlc.dev/internal/metrics"
	"taxidash.nyctlc.dev/internal/models"
)

// DefaultComputeTimeout bounds one shared computation. The computation is
// detached from the callers, so their cancellation does not end it.
const DefaultComputeTimeout = 5 * time.Minute

// ComputeFunc produces the derived rows of one filter specification.
type ComputeFunc func(ctx context.Context, spec models.FilterSpec) (models.DerivedRowSet, error)

// ResultCache memoizes ComputeFunc by the value of the filter specification.
// Concurrent calls for the same key share one computation, and errors are
// never stored. A computation started before Purge never stores its result.
type ResultCache struct {
	store   Store
	compute ComputeFunc
	group   singleflight.Group
	logger  *slog.Logger

	// ComputeTimeout bounds each computation; zero means DefaultComputeTimeout.
	ComputeTimeout time.Duration

	// mu orders stores against Purge; generation counts purges.
	mu         sync.Mutex
	generation uint64

	hits     atomic.Int64
	misses   atomic.Int64
	computes atomic.Int64
}

func NewResultCache(store Store, compute ComputeFunc, logger *slog.Logger) *ResultCache {
	if store == nil {
		store = NewMapStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{
		store:   store,
		compute: compute,
		logger:  logger.With(slog.String("component", "result_cache")),
	}
}

// GetOrCompute returns the cached rows for spec, computing them on a miss.
// Each caller waits for the shared computation only as long as its own ctx
// allows.
func (c *ResultCache) GetOrCompute(ctx context.Context, spec models.FilterSpec) (models.DerivedRowSet, error) {
	key := spec.Key()
	if rows, ok := c.store.Get(key); ok {
		c.hits.Add(1)
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		logging.LogCache(c.logger, "hit", key)
		return rows, nil
	}

	c.misses.Add(1)
	gen := c.currentGeneration()
	// flights are scoped to a generation so callers never join one that
	// started before a purge
	flight := strconv.FormatUint(gen, 10) + "|" + key

	ch := c.group.DoChan(flight, func() (any, error) {
		if rows, ok := c.store.Get(key); ok {
			return rows, nil
		}
		c.computes.Add(1)

		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout())
		defer cancel()
		rows, err := c.compute(computeCtx, spec.Normalize())
		if err != nil {
			return nil, err
		}
		c.storeIfCurrent(gen, key, rows)
		return rows, nil
	})

	select {
	case <-ctx.Done():
		metrics.CacheRequests.WithLabelValues("abandoned").Inc()
		logging.LogCache(c.logger, "abandoned", key)
		return nil, ctx.Err()
	case res := <-ch:
		outcome := "miss"
		if res.Shared {
			outcome = "shared"
		}
		metrics.CacheRequests.WithLabelValues(outcome).Inc()
		logging.LogCache(c.logger, outcome, key)

		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(models.DerivedRowSet), nil
	}
}

func (c *ResultCache) computeTimeout() time.Duration {
	if c.ComputeTimeout > 0 {
		return c.ComputeTimeout
	}
	return DefaultComputeTimeout
}

func (c *ResultCache) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// storeIfCurrent stores rows unless Purge ran since generation gen began.
func (c *ResultCache) storeIfCurrent(gen uint64, key string, rows models.DerivedRowSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		logging.LogCache(c.logger, "discard_stale", key)
		return
	}
	c.store.Set(key, rows)
	metrics.CacheEntries.Set(float64(c.store.Len()))
}

// Purge drops every cached result. Computations still running finish for
// their callers but are not stored.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	c.generation++
	c.store.Purge()
	c.mu.Unlock()

	metrics.CacheEntries.Set(0)
	logging.LogCache(c.logger, "purge", "*")
}

// CacheStats is a snapshot of the cache counters.
type CacheStats struct {
	Entries  int   `json:"entries"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Computes int64 `json:"computes"`
}

func (c *ResultCache) Stats() CacheStats {
	return CacheStats{
		Entries:  c.store.Len(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Computes: c.computes.Load(),
	}
}
