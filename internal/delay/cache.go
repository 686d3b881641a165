package delay

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/nameji/troposar/internal/domain"
	"github.com/nameji/troposar/internal/observability"
)

// CachedSource decorates a Source with a per-date memoization table.
// Concurrent requests for the same date coalesce onto a single in-flight
// computation; completed fields are reused for the lifetime of the run.
type CachedSource struct {
	inner   Source
	group   singleflight.Group
	mu      sync.RWMutex
	fields  map[string]*domain.Field
	metrics *observability.Metrics
}

// NewCachedSource wraps an estimator with the per-date cache.
func NewCachedSource(inner Source, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{inner: inner, fields: make(map[string]*domain.Field), metrics: metrics}
}

// Estimate returns the cached delay field for the date, computing it at
// most once. Failures are not cached: a date that failed on a transient
// store error may be retried by a later pair.
func (c *CachedSource) Estimate(ctx context.Context, date domain.Date) (*domain.Field, error) {
	key := date.Key()

	c.mu.RLock()
	f, ok := c.fields[key]
	c.mu.RUnlock()
	if ok {
		c.metrics.DelayCacheHits.Inc()
		return f, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: a previous flight may have populated the cache
		// between the read above and entering the group.
		c.mu.RLock()
		f, ok := c.fields[key]
		c.mu.RUnlock()
		if ok {
			return f, nil
		}
		f, err := c.inner.Estimate(ctx, date)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.fields[key] = f
		c.mu.Unlock()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Field), nil
}
