package cex

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// countingClient counts concurrent FetchClosedOrders calls so tests can
// assert singleflight coalescing actually happened.
type countingClient struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
	calls    int
	page     []FillRecord
}

func (c *countingClient) FetchClosedOrders(ctx context.Context, symbol string, sinceEpochMs int64) ([]FillRecord, error) {
	c.mu.Lock()
	c.inFlight++
	c.calls++
	if c.inFlight > c.maxSeen {
		c.maxSeen = c.inFlight
	}
	c.mu.Unlock()

	result := c.page

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()
	return result, nil
}

func TestCache_Lookup_CoalescesConcurrentMisses(t *testing.T) {
	client := &countingClient{
		page: []FillRecord{{OrderID: "ord-x", FillTimeMs: 5}},
	}
	cache := NewCache(client, "AVAX-USDT", 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, ok, err := cache.Lookup(context.Background(), "ord-x")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "ord-x", rec.OrderID)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, client.maxSeen, 1, "singleflight should serialize refills")
}

func TestCache_Cursor_AdvancesMonotonically(t *testing.T) {
	client := &countingClient{page: []FillRecord{
		{OrderID: "a", FillTimeMs: 10},
		{OrderID: "b", FillTimeMs: 30},
	}}
	cache := NewCache(client, "AVAX-USDT", 0)

	_, _, err := cache.Lookup(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, int64(31), cache.Cursor())

	client.page = nil
	_, ok, err := cache.Lookup(context.Background(), "nonexistent")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, int64(31), cache.Cursor(), "cursor must not regress on an empty refill")
}

func TestCache_Purge_EvictsEntry(t *testing.T) {
	client := &countingClient{page: []FillRecord{{OrderID: "ord-y", FillTimeMs: 1, AverageFillPrice: decimal.NewFromInt(1)}}}
	cache := NewCache(client, "AVAX-USDT", 0)

	_, ok, err := cache.Lookup(context.Background(), "ord-y")
	require.NoError(t, err)
	require.True(t, ok)

	cache.Purge("ord-y")
	_, hit := cache.get("ord-y")
	require.False(t, hit)
}
