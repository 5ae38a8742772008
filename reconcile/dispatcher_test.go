package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coderkp/order-fill-tracker/model"
)

type recordingReconciler struct {
	mu      sync.Mutex
	seen    []int64
	delay   time.Duration
	failIDs map[int64]bool
}

func (r *recordingReconciler) Reconcile(ctx context.Context, order model.Order) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.seen = append(r.seen, order.ID)
	r.mu.Unlock()
	if r.failIDs[order.ID] {
		return fmt.Errorf("reconcile failed for order %d", order.ID)
	}
	return nil
}

func (r *recordingReconciler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func TestDispatcher_Run_RoutesByExchangeAndCallsEachOrderOnce(t *testing.T) {
	buffer := make(chan model.Order, 10)
	cexR := &recordingReconciler{}
	dexR := &recordingReconciler{}
	d := NewDispatcher(buffer, 5, 3, cexR, dexR)

	buffer <- model.Order{ID: 1, Exchange: model.ExchangeCEX}
	buffer <- model.Order{ID: 2, Exchange: model.ExchangeDEX}
	buffer <- model.Order{ID: 3, Exchange: model.ExchangeCEX}
	close(buffer)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Run(ctx)

	require.ElementsMatch(t, []int64{1, 3}, cexR.seen)
	require.ElementsMatch(t, []int64{2}, dexR.seen)
}

func TestDispatcher_ProcessBatch_BoundsConcurrency(t *testing.T) {
	buffer := make(chan model.Order, 10)
	slow := &recordingReconciler{delay: 30 * time.Millisecond}
	d := NewDispatcher(buffer, 10, 2, slow, slow)

	var batch []model.Order
	for i := int64(0); i < 6; i++ {
		batch = append(batch, model.Order{ID: i, Exchange: model.ExchangeCEX})
	}

	start := time.Now()
	d.processBatch(context.Background(), batch)
	elapsed := time.Since(start)

	require.Equal(t, 6, slow.count())
	// With concurrency capped at 2 and 6 tasks of 30ms each, at least 3
	// sequential waves must elapse.
	require.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func TestDispatcher_DrainBatch_RespectsBatchSizeAndFIFOOrder(t *testing.T) {
	buffer := make(chan model.Order, 10)
	for i := int64(0); i < 5; i++ {
		buffer <- model.Order{ID: i}
	}
	d := NewDispatcher(buffer, 3, 1, &recordingReconciler{}, &recordingReconciler{})

	first := <-buffer
	batch := d.drainBatch(first)

	require.Len(t, batch, 3)
	require.Equal(t, []int64{0, 1, 2}, []int64{batch[0].ID, batch[1].ID, batch[2].ID})
}

func TestDispatcher_DispatchOne_UnknownExchangeErrors(t *testing.T) {
	buffer := make(chan model.Order, 1)
	d := NewDispatcher(buffer, 1, 1, &recordingReconciler{}, &recordingReconciler{})

	err := d.dispatchOne(context.Background(), model.Order{ID: 99, Exchange: "UNKNOWN"})
	require.Error(t, err)
}
