package search

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	results    []Result
	expiration time.Time
}

// Cached memoizes successful searches for a fixed TTL. Errors are never cached.
type Cached struct {
	next Searcher
	ttl  time.Duration
	now  func() time.Time

	mu   sync.RWMutex
	data map[string]cacheEntry
}

// NewCached wraps next with a TTL cache keyed by normalized query and limit.
func NewCached(next Searcher, ttl time.Duration) *Cached {
	return &Cached{next: next, ttl: ttl, now: time.Now, data: make(map[string]cacheEntry)}
}

func (c *Cached) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	key := strconv.Itoa(maxResults) + "|" + strings.ToLower(strings.TrimSpace(query))

	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiration) {
		return append([]Result(nil), e.results...), nil
	}

	res, err := c.next.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.data[key] = cacheEntry{results: res, expiration: c.now().Add(c.ttl)}
	for k, v := range c.data {
		if !c.now().Before(v.expiration) {
			delete(c.data, k)
		}
	}
	c.mu.Unlock()
	return append([]Result(nil), res...), nil
}
