package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coderkp/order-fill-tracker/model"
)

// VenueReconciler reconciles a single order against its venue, per
// spec.md §4.4/§4.5. Both cex.Reconciler and dex.Reconciler satisfy this.
type VenueReconciler interface {
	Reconcile(ctx context.Context, order model.Order) error
}

// Dispatcher is spec.md §4.7's Dispatcher: it pulls up to W entries at a
// time from the head of the Tailing Buffer, routes each to the matching
// venue reconciler, and bounds global reconciliation parallelism at C via
// a semaphore. It never pops the next batch until every task in the
// current one has terminated (success or observed failure).
type Dispatcher struct {
	buffer    chan model.Order
	batchSize int
	sem       chan struct{}

	cex VenueReconciler
	dex VenueReconciler
}

// NewDispatcher builds a Dispatcher draining buffer in batches of at most
// batchSize (spec.md §4.7's W, default 10), with global concurrency
// bounded to concurrency (spec.md §4.7's C, default 3-5).
func NewDispatcher(buffer chan model.Order, batchSize, concurrency int, cexReconciler, dexReconciler VenueReconciler) *Dispatcher {
	return &Dispatcher{
		buffer:    buffer,
		batchSize: batchSize,
		sem:       make(chan struct{}, concurrency),
		cex:       cexReconciler,
		dex:       dexReconciler,
	}
}

// Run drains the buffer until ctx is cancelled or the buffer channel is
// closed.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case first, ok := <-d.buffer:
			if !ok {
				return
			}
			batch := d.drainBatch(first)
			d.processBatch(ctx, batch)
		}
	}
}

// drainBatch collects up to batchSize orders, starting with one already
// received, taking any further ones that are immediately available
// without blocking — buffer order (FIFO by created_time) is preserved
// since only the Reader appends at the tail.
func (d *Dispatcher) drainBatch(first model.Order) []model.Order {
	batch := make([]model.Order, 0, d.batchSize)
	batch = append(batch, first)

	for len(batch) < d.batchSize {
		select {
		case o, ok := <-d.buffer:
			if !ok {
				return batch
			}
			batch = append(batch, o)
		default:
			return batch
		}
	}
	return batch
}

// processBatch spawns one reconciliation task per order, governed by the
// concurrency semaphore, and waits for all of them before returning — the
// Dispatcher does not advance to the next batch until this batch's tasks
// have all terminated.
func (d *Dispatcher) processBatch(ctx context.Context, batch []model.Order) {
	var wg sync.WaitGroup
	for _, order := range batch {
		order := order
		d.sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-d.sem }()
			if err := d.dispatchOne(ctx, order); err != nil {
				log.Error().
					Err(err).
					Int64("order_id", order.ID).
					Str("exchange", string(order.Exchange)).
					Msg("reconciliation task failed")
			}
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) dispatchOne(ctx context.Context, order model.Order) error {
	switch order.Exchange {
	case model.ExchangeCEX:
		return d.cex.Reconcile(ctx, order)
	case model.ExchangeDEX:
		return d.dex.Reconcile(ctx, order)
	default:
		return fmt.Errorf("dispatcher: unknown exchange %q for order %d", order.Exchange, order.ID)
	}
}
