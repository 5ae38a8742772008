package cex

import "github.com/shopspring/decimal"

// Fee is the fee sub-object on a closed-order record.
type Fee struct {
	Amount decimal.Decimal
	Token  string
}

// FillRecord is the CEX abstract fill record from spec.md §3, shaped after
// an OKX "fetch closed orders" entry.
type FillRecord struct {
	OrderID          string
	AverageFillPrice decimal.Decimal
	Cost             decimal.Decimal
	FilledQuantity   decimal.Decimal
	Fee              Fee
	Status           string // "filled" or other
	FillTimeMs       int64  // epoch-ms
}
