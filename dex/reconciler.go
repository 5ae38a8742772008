package dex

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/coderkp/order-fill-tracker/model"
)

// InternalTxFetcher is the subset of Client the reconciler needs for the
// BUY-side internal-transaction lookup.
type InternalTxFetcher interface {
	FetchInternalTxs(ctx context.Context, txHash string) ([]InternalTx, error)
}

// StoreGateway is the subset of the Store Gateway the reconciler needs.
type StoreGateway interface {
	UpdateFill(ctx context.Context, update model.FillUpdate) (model.UpdateResult, error)
}

// Reconciler maps a cached DEX token-transfer (plus, for BUY orders, an
// internal transaction) onto an order update, per spec.md §4.5.
type Reconciler struct {
	cache      *Cache
	internalTx InternalTxFetcher
	store      StoreGateway

	wallet        common.Address
	baseToken     string // "AVAX"
	quoteToken    string // "USDT"
	baseDecimals  int32  // 18
	quoteDecimals int32  // 6
}

// Config carries the venue parameters spec.md §4.5/§6 requires.
type Config struct {
	Wallet        string
	BaseToken     string
	QuoteToken    string
	BaseDecimals  int32
	QuoteDecimals int32
}

// NewReconciler builds a DEX reconciler.
func NewReconciler(cache *Cache, internalTx InternalTxFetcher, store StoreGateway, cfg Config) *Reconciler {
	if cfg.BaseToken == "" {
		cfg.BaseToken = "AVAX"
	}
	if cfg.QuoteToken == "" {
		cfg.QuoteToken = "USDT"
	}
	if cfg.BaseDecimals == 0 {
		cfg.BaseDecimals = 18
	}
	if cfg.QuoteDecimals == 0 {
		cfg.QuoteDecimals = 6
	}
	return &Reconciler{
		cache:         cache,
		internalTx:    internalTx,
		store:         store,
		wallet:        common.HexToAddress(cfg.Wallet),
		baseToken:     cfg.BaseToken,
		quoteToken:    cfg.QuoteToken,
		baseDecimals:  cfg.BaseDecimals,
		quoteDecimals: cfg.QuoteDecimals,
	}
}

// Reconcile attempts to fill the given order from the DEX Fill Cache
// (and, for BUY orders, the internal-transaction lookup) and, on success,
// persists the enrichment via UpdateFill.
func (r *Reconciler) Reconcile(ctx context.Context, order model.Order) error {
	if order.TransactionHash == nil || *order.TransactionHash == "" {
		return fmt.Errorf("dex reconciler: order %d has no transaction hash", order.ID)
	}
	txHash := *order.TransactionHash

	var (
		transfer   TokenTransfer
		hit        bool
		lookupErr  error
		internals  []InternalTx
		internalEr error
	)

	if order.TradeSide == model.TradeSideBuy {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			transfer, hit, lookupErr = r.cache.Lookup(ctx, txHash)
		}()
		go func() {
			defer wg.Done()
			internals, internalEr = r.internalTx.FetchInternalTxs(ctx, txHash)
		}()
		wg.Wait()
	} else {
		transfer, hit, lookupErr = r.cache.Lookup(ctx, txHash)
	}

	if lookupErr != nil {
		return lookupErr
	}
	if !hit {
		log.Info().
			Int64("order_id", order.ID).
			Str("transaction_hash", txHash).
			Msg("dex reconciler: transaction not found on chain yet, skipping")
		return nil
	}
	if order.TradeSide == model.TradeSideBuy && internalEr != nil {
		return internalEr
	}

	var (
		inputAmount, outputAmount, avgPrice decimal.Decimal
		inputToken, outputToken             string
	)

	switch order.TradeSide {
	case model.TradeSideBuy:
		if len(internals) == 0 {
			log.Error().Int64("order_id", order.ID).Msg("dex reconciler: no internal transactions found, skipping")
			return nil
		}
		last := internals[len(internals)-1]
		if common.HexToAddress(last.To) != r.wallet {
			log.Error().
				Int64("order_id", order.ID).
				Str("to", last.To).
				Str("wallet", r.wallet.Hex()).
				Msg("dex reconciler: internal tx recipient does not match configured wallet, aborting")
			return nil
		}

		inputAmount = order.Size
		inputToken = r.quoteToken
		outputAmount = decimal.NewFromBigInt(last.Value, -r.baseDecimals).RoundBank(4)
		outputToken = r.baseToken
		if !outputAmount.IsZero() {
			avgPrice = inputAmount.Div(outputAmount).RoundBank(4)
		}

	case model.TradeSideSell:
		if order.Price == nil || order.Price.IsZero() {
			return fmt.Errorf("dex reconciler: SELL order %d missing price", order.ID)
		}
		inputAmount = order.Size.Div(*order.Price).RoundBank(4)
		inputToken = r.baseToken
		outputAmount = decimal.NewFromBigInt(transfer.Value, -r.quoteDecimals).RoundBank(4)
		outputToken = r.quoteToken
		if !inputAmount.IsZero() {
			avgPrice = outputAmount.Div(inputAmount).RoundBank(4)
		}

	default:
		return fmt.Errorf("dex reconciler: unknown trade side %q", order.TradeSide)
	}

	feeInfo := map[string]interface{}{
		"gas":               transfer.Gas,
		"gasPrice":          transfer.GasPrice,
		"gasUsed":           transfer.GasUsed,
		"cumulativeGasUsed": transfer.CumulativeGasUsed,
	}

	update := model.FillUpdate{
		OrderID:      order.ID,
		Status:       model.OrderStatusFilled,
		InputAmount:  decPtr(inputAmount),
		InputToken:   &inputToken,
		OutputAmount: decPtr(outputAmount),
		OutputToken:  &outputToken,
		FeeInfo:      feeInfo,
	}
	if !avgPrice.IsZero() {
		update.AverageFillPrice = decPtr(avgPrice)
	}

	if _, err := r.store.UpdateFill(ctx, update); err != nil {
		return err
	}

	r.cache.Purge(txHash)
	return nil
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
