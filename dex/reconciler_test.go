package dex

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/coderkp/order-fill-tracker/model"
)

type fakeTokenTxClient struct {
	transfers []TokenTransfer
}

func (f *fakeTokenTxClient) FetchTokenTransfers(ctx context.Context, startBlock, endBlock int64) ([]TokenTransfer, error) {
	return f.transfers, nil
}

type fakeInternalTxFetcher struct {
	byHash map[string][]InternalTx
}

func (f *fakeInternalTxFetcher) FetchInternalTxs(ctx context.Context, txHash string) ([]InternalTx, error) {
	return f.byHash[txHash], nil
}

type fakeStoreGateway struct {
	updates []model.FillUpdate
}

func (f *fakeStoreGateway) UpdateFill(ctx context.Context, update model.FillUpdate) (model.UpdateResult, error) {
	f.updates = append(f.updates, update)
	return model.UpdateDone, nil
}

func avaxWei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func usdtUnits(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e6))
}

// TestReconciler_Reconcile_SellComputesAveragePrice matches the SELL
// scenario: a 5 AVAX sell order whose on-chain transfer returns 2000
// USDT, for an average price of 400.
func TestReconciler_Reconcile_SellComputesAveragePrice(t *testing.T) {
	price := decimal.NewFromInt(400)
	order := model.Order{
		ID:              1,
		TradeSide:       model.TradeSideSell,
		Size:            decimal.NewFromInt(2000),
		Price:           &price,
		TransactionHash: strPtr("0xabc"),
	}

	cache := NewCache(&fakeTokenTxClient{transfers: []TokenTransfer{
		{Hash: "0xabc", BlockNumber: 1, Value: usdtUnits(2000), To: "0xwallet"},
	}}, 0)
	internalTx := &fakeInternalTxFetcher{}
	store := &fakeStoreGateway{}
	r := NewReconciler(cache, internalTx, store, Config{Wallet: "0xWallet", QuoteDecimals: 6, BaseDecimals: 18})

	require.NoError(t, r.Reconcile(context.Background(), order))
	require.Len(t, store.updates, 1)
	u := store.updates[0]
	require.True(t, u.InputAmount.Equal(decimal.NewFromInt(5)), "input amount should be 5 AVAX")
	require.True(t, u.OutputAmount.Equal(decimal.NewFromInt(2000)))
	require.True(t, u.AverageFillPrice.Equal(decimal.NewFromInt(400)))
}

// TestReconciler_Reconcile_BuyComputesAveragePrice matches the BUY
// scenario: a 2000 USDT buy order whose internal transaction delivers 100
// AVAX, for an average price of 20.
func TestReconciler_Reconcile_BuyComputesAveragePrice(t *testing.T) {
	order := model.Order{
		ID:              2,
		TradeSide:       model.TradeSideBuy,
		Size:            decimal.NewFromInt(2000),
		TransactionHash: strPtr("0xdef"),
	}

	cache := NewCache(&fakeTokenTxClient{transfers: []TokenTransfer{
		{Hash: "0xdef", BlockNumber: 1, To: "0xwallet"},
	}}, 0)
	internalTx := &fakeInternalTxFetcher{byHash: map[string][]InternalTx{
		"0xdef": {{To: "0xWallet", Value: avaxWei(100)}},
	}}
	store := &fakeStoreGateway{}
	r := NewReconciler(cache, internalTx, store, Config{Wallet: "0xWallet", QuoteDecimals: 6, BaseDecimals: 18})

	require.NoError(t, r.Reconcile(context.Background(), order))
	require.Len(t, store.updates, 1)
	u := store.updates[0]
	require.True(t, u.OutputAmount.Equal(decimal.NewFromInt(100)), "output amount should be 100 AVAX")
	require.True(t, u.AverageFillPrice.Equal(decimal.NewFromInt(20)))
}

// TestReconciler_Reconcile_BuyWalletMismatchAborts matches the scenario
// where the internal transaction's recipient does not match the
// configured wallet: the reconciler must not write an update.
func TestReconciler_Reconcile_BuyWalletMismatchAborts(t *testing.T) {
	order := model.Order{
		ID:              3,
		TradeSide:       model.TradeSideBuy,
		Size:            decimal.NewFromInt(2000),
		TransactionHash: strPtr("0xghi"),
	}

	cache := NewCache(&fakeTokenTxClient{transfers: []TokenTransfer{
		{Hash: "0xghi", BlockNumber: 1, To: "0xwallet"},
	}}, 0)
	internalTx := &fakeInternalTxFetcher{byHash: map[string][]InternalTx{
		"0xghi": {{To: "0x2222222222222222222222222222222222222222", Value: avaxWei(100)}},
	}}
	store := &fakeStoreGateway{}
	r := NewReconciler(cache, internalTx, store, Config{Wallet: "0x1111111111111111111111111111111111111111", QuoteDecimals: 6, BaseDecimals: 18})

	require.NoError(t, r.Reconcile(context.Background(), order))
	require.Empty(t, store.updates)
}

func TestReconciler_Reconcile_CacheMissSkipsSilently(t *testing.T) {
	order := model.Order{
		ID:              4,
		TradeSide:       model.TradeSideSell,
		Size:            decimal.NewFromInt(10),
		Price:           decPtr(decimal.NewFromInt(2)),
		TransactionHash: strPtr("0xmissing"),
	}

	cache := NewCache(&fakeTokenTxClient{}, 0)
	store := &fakeStoreGateway{}
	r := NewReconciler(cache, &fakeInternalTxFetcher{}, store, Config{Wallet: "0xWallet"})

	require.NoError(t, r.Reconcile(context.Background(), order))
	require.Empty(t, store.updates)
}

func strPtr(s string) *string { return &s }
