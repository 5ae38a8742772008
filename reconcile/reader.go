package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coderkp/order-fill-tracker/model"
)

// OrderSource is the subset of the Store Gateway the Tailing Reader needs.
type OrderSource interface {
	FetchSince(ctx context.Context, watermark time.Time) ([]model.Order, error)
}

// Reader is the Tailing Reader from spec.md §4.6: every pollInterval it
// queries the Store Gateway past the current watermark and appends new
// rows to the bounded Tailing Buffer. Only the Reader appends to the
// buffer (spec.md §4.7's buffer discipline) — it is modeled as a Go
// channel of fixed capacity, following the teacher's ticker-driven
// goroutine-loop idiom (core/engine.go's mainLoop/positionMonitorLoop).
type Reader struct {
	source       OrderSource
	buffer       chan model.Order
	pollInterval time.Duration
	watermark    time.Time
}

// NewReader builds a Tailing Reader writing into a buffer of capacity B
// (spec.md §4.6's default 1000), starting from the given watermark.
func NewReader(source OrderSource, buffer chan model.Order, pollInterval time.Duration, startWatermark time.Time) *Reader {
	return &Reader{
		source:       source,
		buffer:       buffer,
		pollInterval: pollInterval,
		watermark:    startWatermark,
	}
}

// Run polls on pollInterval until ctx is cancelled.
func (r *Reader) Run(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

// poll performs a single tick: fetch rows past the watermark, append as
// many as the buffer has room for, and advance the watermark to the
// created_time of the last row actually appended — never further, so a
// truncated tail is re-offered on the next tick (spec.md §4.6).
func (r *Reader) poll(ctx context.Context) {
	orders, err := r.source.FetchSince(ctx, r.watermark)
	if err != nil {
		log.Warn().Err(err).Msg("tailing reader: FetchSince failed, will retry next tick")
		return
	}
	if len(orders) == 0 {
		return
	}

	appended := 0
appendLoop:
	for _, o := range orders {
		select {
		case r.buffer <- o:
			appended++
		default:
			log.Error().
				Int("batch_size", len(orders)).
				Int("appended", appended).
				Msg("critical: tailing buffer full, truncating batch")
			break appendLoop
		}
	}

	if appended > 0 {
		r.watermark = orders[appended-1].CreatedTime
	}
}

// Watermark returns the current watermark, for tests and observability.
func (r *Reader) Watermark() time.Time {
	return r.watermark
}
