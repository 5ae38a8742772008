package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the domain-level snapshot of an order row. The Tailing Reader
// hands these out as immutable values; the Store Gateway is the only thing
// that translates to and from the persisted row shape.
type Order struct {
	ID                int64
	StitchID          *int64
	Pair              string
	Exchange          Exchange
	TradeSide         TradeSide
	Type              OrderType
	Size              decimal.Decimal
	Price             *decimal.Decimal
	Status            OrderStatus
	ExchangeOrderID   string
	TransactionHash   *string
	CreatedTime       time.Time
	LastUpdatedTime   time.Time
	InputAmount       *decimal.Decimal
	InputToken        *string
	OutputAmount      *decimal.Decimal
	OutputToken       *string
	AverageFillPrice  *decimal.Decimal
	FeeInfo           map[string]interface{}
}

// FillUpdate is the set of enrichment fields a reconciler computes and
// hands to the Store Gateway's UpdateFill operation.
type FillUpdate struct {
	OrderID          int64
	Status           OrderStatus
	InputAmount      *decimal.Decimal
	InputToken       *string
	OutputAmount     *decimal.Decimal
	OutputToken      *string
	AverageFillPrice *decimal.Decimal
	FeeInfo          map[string]interface{}
}

// UpdateResult is the outcome of a Store Gateway UpdateFill call.
type UpdateResult int

const (
	UpdateDone UpdateResult = iota
	UpdateNotFound
)

func (r UpdateResult) String() string {
	if r == UpdateDone {
		return "Done"
	}
	return "NotFound"
}
