package cex

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// VenueClient is the subset of Client the cache depends on, so tests can
// substitute a fake instead of hitting the network.
type VenueClient interface {
	FetchClosedOrders(ctx context.Context, symbol string, sinceEpochMs int64) ([]FillRecord, error)
}

// Cache is the per-venue Fill Cache from spec.md §4.3: a key (exchange
// order id) -> FillRecord map, refilled from the venue on miss, with the
// refill cursor (since_epoch_ms) owned by the cache and at most one
// refill in flight at a time.
//
// Coalescing is implemented with singleflight.Group rather than a bare
// mutex: concurrent misses call group.Do with the same key and all but
// one block on the single running refill, then each re-checks the map.
// This is the "shared future/promise" strategy spec.md §4.3/§9 allows.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]FillRecord
	cursor   int64
	client   VenueClient
	symbol   string
	maxPages int

	group singleflight.Group
}

// NewCache constructs a Fill Cache starting its cursor at startEpochMs
// (0, or a configured epoch per spec.md §4.3).
func NewCache(client VenueClient, symbol string, startEpochMs int64) *Cache {
	return &Cache{
		entries:  make(map[string]FillRecord),
		cursor:   startEpochMs,
		client:   client,
		symbol:   symbol,
		maxPages: 50,
	}
}

// Lookup implements spec.md §4.3's contract: return the cached value if
// present, otherwise coalesce onto a single in-flight refill, and keep
// pulling pages (bounded by maxPages) until the key appears or a page
// comes back empty (terminal miss).
func (c *Cache) Lookup(ctx context.Context, key string) (FillRecord, bool, error) {
	if rec, ok := c.get(key); ok {
		return rec, true, nil
	}

	for page := 0; page < c.maxPages; page++ {
		n, err := c.refill(ctx)
		if err != nil {
			return FillRecord{}, false, err
		}
		if rec, ok := c.get(key); ok {
			return rec, true, nil
		}
		if n == 0 {
			return FillRecord{}, false, nil
		}
	}
	return FillRecord{}, false, fmt.Errorf("cex cache: exceeded %d refill pages without resolving %q", c.maxPages, key)
}

func (c *Cache) get(key string) (FillRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[key]
	return rec, ok
}

// refill fetches one page from the venue, advancing the cursor strictly
// past the largest fill_time observed, and returns the page size so the
// caller can detect the terminal empty page.
func (c *Cache) refill(ctx context.Context) (int, error) {
	v, err, _ := c.group.Do("refill", func() (interface{}, error) {
		c.mu.RLock()
		since := c.cursor
		c.mu.RUnlock()

		recs, err := c.client.FetchClosedOrders(ctx, c.symbol, since)
		if err != nil {
			return 0, err
		}

		c.mu.Lock()
		var maxObserved int64 = -1
		for _, rec := range recs {
			c.entries[rec.OrderID] = rec
			if rec.FillTimeMs > maxObserved {
				maxObserved = rec.FillTimeMs
			}
		}
		if maxObserved >= 0 && maxObserved+1 > c.cursor {
			c.cursor = maxObserved + 1
		}
		c.mu.Unlock()

		return len(recs), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Purge evicts a cache entry after successful consumption. Whether the
// CEX reconciler calls this is a policy decision — see DESIGN.md; this
// implementation does purge, to bound memory the same way the DEX side
// must.
func (c *Cache) Purge(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Cursor returns the current refill cursor, for tests and observability.
func (c *Cache) Cursor() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}
