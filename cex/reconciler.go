package cex

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/coderkp/order-fill-tracker/model"
)

// StoreGateway is the subset of the Store Gateway the reconciler needs.
type StoreGateway interface {
	UpdateFill(ctx context.Context, update model.FillUpdate) (model.UpdateResult, error)
}

// Reconciler maps a cached CEX fill record onto an order update, per
// spec.md §4.4. Token-level input/output amounts are left null for CEX
// records in this revision — only price and fee are enriched.
type Reconciler struct {
	cache       *Cache
	store       StoreGateway
	ageGateMs   int64 // orders older than this epoch-ms cutoff are skipped; 0 disables the gate
	purgeOnDone bool
}

// NewReconciler builds a CEX reconciler. ageGateMs of 0 disables the
// "drop ancient rows" guard from spec.md §4.4 step 1.
func NewReconciler(cache *Cache, store StoreGateway, ageGateMs int64) *Reconciler {
	return &Reconciler{
		cache:       cache,
		store:       store,
		ageGateMs:   ageGateMs,
		purgeOnDone: true,
	}
}

// Reconcile attempts to fill the given order from the CEX Fill Cache and,
// on success, persists the enrichment via UpdateFill.
func (r *Reconciler) Reconcile(ctx context.Context, order model.Order) error {
	if r.ageGateMs > 0 && order.CreatedTime.UnixMilli() < r.ageGateMs {
		log.Debug().Int64("order_id", order.ID).Msg("cex reconciler: order older than age gate, skipping")
		return nil
	}

	rec, hit, err := r.cache.Lookup(ctx, order.ExchangeOrderID)
	if err != nil {
		return err
	}
	if !hit {
		log.Info().
			Int64("order_id", order.ID).
			Str("exchange_order_id", order.ExchangeOrderID).
			Msg("cex reconciler: no fill data available yet")
		return nil
	}

	status := model.OrderStatusCreated
	if rec.Status == "filled" {
		status = model.OrderStatusFilled
	}
	if status != model.OrderStatusFilled {
		// Retain CREATED — don't write an update for a non-terminal venue state.
		return nil
	}

	avgPrice := rec.AverageFillPrice.RoundBank(4)
	feeInfo := map[string]interface{}{
		"fee":       rec.Fee.Amount,
		"fee_token": rec.Fee.Token,
	}

	_, err = r.store.UpdateFill(ctx, model.FillUpdate{
		OrderID:          order.ID,
		Status:           model.OrderStatusFilled,
		AverageFillPrice: decPtr(avgPrice),
		FeeInfo:          feeInfo,
	})
	if err != nil {
		return err
	}

	if r.purgeOnDone {
		r.cache.Purge(order.ExchangeOrderID)
	}
	return nil
}

func decPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
