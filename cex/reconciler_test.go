package cex

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coderkp/order-fill-tracker/model"
)

type fakeVenueClient struct {
	pages [][]FillRecord
	calls int
}

func (f *fakeVenueClient) FetchClosedOrders(ctx context.Context, symbol string, sinceEpochMs int64) ([]FillRecord, error) {
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	page := f.pages[f.calls]
	f.calls++
	return page, nil
}

type fakeStore struct {
	updates []model.FillUpdate
}

func (f *fakeStore) UpdateFill(ctx context.Context, update model.FillUpdate) (model.UpdateResult, error) {
	f.updates = append(f.updates, update)
	return model.UpdateDone, nil
}

func TestReconciler_Reconcile_FillsFromCache(t *testing.T) {
	client := &fakeVenueClient{
		pages: [][]FillRecord{
			{
				{
					OrderID:          "ord-1",
					AverageFillPrice: decimal.NewFromFloat(20.1234),
					FilledQuantity:   decimal.NewFromInt(10),
					Fee:              Fee{Amount: decimal.NewFromFloat(0.01), Token: "USDT"},
					Status:           "filled",
					FillTimeMs:       1000,
				},
			},
		},
	}
	cache := NewCache(client, "AVAX-USDT", 0)
	store := &fakeStore{}
	r := NewReconciler(cache, store, 0)

	order := model.Order{
		ID:              1,
		ExchangeOrderID: "ord-1",
		TradeSide:       model.TradeSideBuy,
		CreatedTime:     time.Now(),
	}

	require.NoError(t, r.Reconcile(context.Background(), order))
	require.Len(t, store.updates, 1)
	require.Equal(t, int64(1), store.updates[0].OrderID)
	require.Equal(t, model.OrderStatusFilled, store.updates[0].Status)
	require.True(t, store.updates[0].AverageFillPrice.Equal(decimal.NewFromFloat(20.1234)))
}

func TestReconciler_Reconcile_MissLeavesOrderAlone(t *testing.T) {
	client := &fakeVenueClient{pages: [][]FillRecord{{}}}
	cache := NewCache(client, "AVAX-USDT", 0)
	store := &fakeStore{}
	r := NewReconciler(cache, store, 0)

	order := model.Order{ID: 2, ExchangeOrderID: "ord-missing", TradeSide: model.TradeSideSell, CreatedTime: time.Now()}
	require.NoError(t, r.Reconcile(context.Background(), order))
	require.Empty(t, store.updates)
}

func TestReconciler_Reconcile_AgeGateSkips(t *testing.T) {
	client := &fakeVenueClient{}
	cache := NewCache(client, "AVAX-USDT", 0)
	store := &fakeStore{}
	ageGate := time.Now().UnixMilli()
	r := NewReconciler(cache, store, ageGate)

	order := model.Order{
		ID:              3,
		ExchangeOrderID: "ord-old",
		TradeSide:       model.TradeSideBuy,
		CreatedTime:     time.UnixMilli(ageGate - 1000),
	}
	require.NoError(t, r.Reconcile(context.Background(), order))
	require.Empty(t, store.updates)
	require.Zero(t, client.calls)
}
