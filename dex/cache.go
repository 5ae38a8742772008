package dex

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// VenueClient is the subset of Client the cache depends on.
type VenueClient interface {
	FetchTokenTransfers(ctx context.Context, startBlock, endBlock int64) ([]TokenTransfer, error)
}

const endBlockSentinel = 99999999

// Cache is the per-venue Fill Cache from spec.md §4.3, keyed by
// transaction hash, with the refill cursor being last_seen_block.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]TokenTransfer
	cursor   int64
	client   VenueClient
	maxPages int

	group singleflight.Group
}

// NewCache constructs a DEX Fill Cache starting its block cursor at 0 (or
// a configured starting block).
func NewCache(client VenueClient, startBlock int64) *Cache {
	return &Cache{
		entries:  make(map[string]TokenTransfer),
		cursor:   startBlock,
		client:   client,
		maxPages: 50,
	}
}

// Lookup follows the same contract as cex.Cache.Lookup: in-flight
// coalescing via singleflight, bounded recursive refill, terminal miss on
// an empty page.
func (c *Cache) Lookup(ctx context.Context, key string) (TokenTransfer, bool, error) {
	if rec, ok := c.get(key); ok {
		return rec, true, nil
	}

	for page := 0; page < c.maxPages; page++ {
		n, err := c.refill(ctx)
		if err != nil {
			return TokenTransfer{}, false, err
		}
		if rec, ok := c.get(key); ok {
			return rec, true, nil
		}
		if n == 0 {
			return TokenTransfer{}, false, nil
		}
	}
	return TokenTransfer{}, false, fmt.Errorf("dex cache: exceeded %d refill pages without resolving %q", c.maxPages, key)
}

func (c *Cache) get(key string) (TokenTransfer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[key]
	return rec, ok
}

func (c *Cache) refill(ctx context.Context) (int, error) {
	v, err, _ := c.group.Do("refill", func() (interface{}, error) {
		c.mu.RLock()
		start := c.cursor
		c.mu.RUnlock()

		transfers, err := c.client.FetchTokenTransfers(ctx, start, endBlockSentinel)
		if err != nil {
			return 0, err
		}

		c.mu.Lock()
		var maxBlock int64 = -1
		for _, t := range transfers {
			c.entries[t.Hash] = t
			if t.BlockNumber > maxBlock {
				maxBlock = t.BlockNumber
			}
		}
		if maxBlock >= 0 && maxBlock+1 > c.cursor {
			c.cursor = maxBlock + 1
		}
		c.mu.Unlock()

		return len(transfers), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Purge evicts a cache entry after successful consumption. The DEX
// reconciler always purges, per spec.md §4.3/§4.5.
func (c *Cache) Purge(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Cursor returns the current refill cursor (last_seen_block), for tests
// and observability.
func (c *Cache) Cursor() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}
