package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// orderRow is the gorm-mapped row shape for the order table (spec.md §3),
// mirroring the original naive_mm_analytics ORDER table columns. Column
// names follow the original's snake_case so a reader of the existing
// database finds familiar names.
type orderRow struct {
	ID               int64      `gorm:"column:id;primaryKey"`
	StitchID         *int64     `gorm:"column:stitch_id;index"`
	Pair             string     `gorm:"column:pair;index"`
	Exchange         string     `gorm:"column:exchange;index"`
	TradeSide        string     `gorm:"column:trade_side"`
	Type             string     `gorm:"column:type"`
	Size             decimal.Decimal  `gorm:"column:size;type:decimal(30,10)"`
	Price            *decimal.Decimal `gorm:"column:price;type:decimal(30,10)"`
	Status           string     `gorm:"column:status;index"`
	ExchangeOrderID  string     `gorm:"column:exchange_order_id;index"`
	TransactionHash  *string    `gorm:"column:transaction_hash;index"`
	CreatedTime      time.Time  `gorm:"column:created_time;index"`
	LastUpdatedTime  time.Time  `gorm:"column:last_updated_time"`
	InputAmount      *decimal.Decimal `gorm:"column:input_amount;type:decimal(30,10)"`
	InputToken       *string    `gorm:"column:input_token"`
	OutputAmount     *decimal.Decimal `gorm:"column:output_amount;type:decimal(30,10)"`
	OutputToken      *string    `gorm:"column:output_token"`
	AverageFillPrice *decimal.Decimal `gorm:"column:average_fill_price;type:decimal(30,10)"`
	FeeInfo          JSONMap    `gorm:"column:fee_info;type:jsonb"`
}

func (orderRow) TableName() string {
	return "orders"
}

// arbPerformanceRow supplements the order table with the original's
// ArbPerformance bookkeeping (spec.md's §10 supplemented feature): one row
// per completed arbitrage cycle, recording the realized edge once both
// legs have reached FILLED.
type arbPerformanceRow struct {
	ID              int64           `gorm:"column:id;primaryKey"`
	StitchID        int64           `gorm:"column:stitch_id;index;uniqueIndex"`
	Pair            string          `gorm:"column:pair"`
	CexOrderID      int64           `gorm:"column:cex_order_id"`
	DexOrderID      int64           `gorm:"column:dex_order_id"`
	CexAveragePrice decimal.Decimal `gorm:"column:cex_average_price;type:decimal(30,10)"`
	DexAveragePrice decimal.Decimal `gorm:"column:dex_average_price;type:decimal(30,10)"`
	SpreadPct       decimal.Decimal `gorm:"column:spread_pct;type:decimal(10,6)"`
	RealizedPnl     decimal.Decimal `gorm:"column:realized_pnl;type:decimal(30,10)"`
	CreatedTime     time.Time       `gorm:"column:created_time"`
}

func (arbPerformanceRow) TableName() string {
	return "arb_performance"
}
