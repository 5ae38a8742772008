package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/coderkp/order-fill-tracker/model"
)

// Store is the Store Gateway from spec.md §4.1: the single entry point
// reconcilers and the Tailing Reader use to read CREATED orders and to
// persist fill enrichment, fronting a postgres database through gorm the
// way the teacher's internal/database.Database fronts sqlite/postgres.
type Store struct {
	db           *gorm.DB
	minOrderSize decimal.Decimal
	pageSize     int
}

// Config carries the connection parameters spec.md §6 lists for the Store
// Gateway, plus the FetchSince tunables (spec.md §9's dust filter and page
// size) baked in at construction time so OrderSource.FetchSince can match
// the Tailing Reader's two-argument interface.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MinOrderSize decimal.Decimal
	PageSize     int
}

// New opens a postgres connection and migrates the schema. Unlike the
// teacher's internal/database.New, this gateway is postgres-only (spec.md
// §6 names postgres as the store) so there is no sqlite fallback branch.
func New(cfg Config) (*Store, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("storage: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)

	if err := db.AutoMigrate(&orderRow{}, &arbPerformanceRow{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	log.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("storage: connected")
	return &Store{db: db, minOrderSize: cfg.MinOrderSize, pageSize: pageSize}, nil
}

// FetchSince implements reconcile.OrderSource: it returns CREATED orders
// with created_time strictly after watermark, oldest first, capped at the
// configured page size (spec.md §4.6). Orders at or below the configured
// minimum size are excluded — the original's "dust" filter.
func (s *Store) FetchSince(ctx context.Context, watermark time.Time) ([]model.Order, error) {
	var rows []orderRow
	err := s.db.WithContext(ctx).
		Where("created_time > ? AND status = ? AND size > ?", watermark, string(model.OrderStatusCreated), s.minOrderSize).
		Order("created_time ASC").
		Limit(s.pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("storage: FetchSince: %w", err)
	}

	orders := make([]model.Order, 0, len(rows))
	for _, r := range rows {
		o, err := rowToOrder(r)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateFill implements the cex/dex StoreGateway interfaces: it stamps the
// enrichment fields a reconciler computed, moves the order to FILLED, and
// bumps last_updated_time, transactionally. The existing status is not
// inspected: applying the same update twice rewrites the same enrichment
// values, and only last_updated_time moves forward.
func (s *Store) UpdateFill(ctx context.Context, update model.FillUpdate) (model.UpdateResult, error) {
	result := model.UpdateDone
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing orderRow
		if err := tx.First(&existing, "id = ?", update.OrderID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				result = model.UpdateNotFound
				return nil
			}
			return err
		}

		updates := map[string]interface{}{
			"status":             string(update.Status),
			"last_updated_time":  time.Now().UTC(),
			"input_amount":       update.InputAmount,
			"input_token":        update.InputToken,
			"output_amount":      update.OutputAmount,
			"output_token":       update.OutputToken,
			"average_fill_price": update.AverageFillPrice,
			"fee_info":           JSONMap(update.FeeInfo),
		}
		return tx.Model(&existing).Updates(updates).Error
	})
	if err != nil {
		return model.UpdateDone, fmt.Errorf("storage: UpdateFill(%d): %w", update.OrderID, err)
	}
	return result, nil
}

// SaveArbPerformance persists a completed arbitrage cycle's realized edge
// (spec.md §10's supplemented feature), keyed by stitch_id so re-running
// the computation for the same cycle overwrites rather than duplicates.
func (s *Store) SaveArbPerformance(ctx context.Context, perf ArbPerformance) error {
	row := arbPerformanceRow{
		StitchID:        perf.StitchID,
		Pair:            perf.Pair,
		CexOrderID:      perf.CexOrderID,
		DexOrderID:      perf.DexOrderID,
		CexAveragePrice: perf.CexAveragePrice,
		DexAveragePrice: perf.DexAveragePrice,
		SpreadPct:       perf.SpreadPct,
		RealizedPnl:     perf.RealizedPnl,
		CreatedTime:     time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Where("stitch_id = ?", perf.StitchID).
		Assign(row).
		FirstOrCreate(&arbPerformanceRow{}).Error
}

// ArbPerformance is the domain-level view of a completed arbitrage cycle.
type ArbPerformance struct {
	StitchID        int64
	Pair            string
	CexOrderID      int64
	DexOrderID      int64
	CexAveragePrice decimal.Decimal
	DexAveragePrice decimal.Decimal
	SpreadPct       decimal.Decimal
	RealizedPnl     decimal.Decimal
}

// GetArbPerformance looks up a completed arbitrage cycle's realized edge
// by stitch_id (spec.md §10's supplemented feature).
func (s *Store) GetArbPerformance(ctx context.Context, stitchID int64) (ArbPerformance, error) {
	var row arbPerformanceRow
	err := s.db.WithContext(ctx).First(&row, "stitch_id = ?", stitchID).Error
	if err != nil {
		return ArbPerformance{}, fmt.Errorf("storage: GetArbPerformance(%d): %w", stitchID, err)
	}
	return ArbPerformance{
		StitchID:        row.StitchID,
		Pair:            row.Pair,
		CexOrderID:      row.CexOrderID,
		DexOrderID:      row.DexOrderID,
		CexAveragePrice: row.CexAveragePrice,
		DexAveragePrice: row.DexAveragePrice,
		SpreadPct:       row.SpreadPct,
		RealizedPnl:     row.RealizedPnl,
	}, nil
}

func rowToOrder(r orderRow) (model.Order, error) {
	side, err := model.ParseTradeSide(r.TradeSide)
	if err != nil {
		return model.Order{}, fmt.Errorf("storage: row %d: %w", r.ID, err)
	}
	exch, err := model.ParseExchange(r.Exchange)
	if err != nil {
		return model.Order{}, fmt.Errorf("storage: row %d: %w", r.ID, err)
	}

	return model.Order{
		ID:               r.ID,
		StitchID:         r.StitchID,
		Pair:             r.Pair,
		Exchange:         exch,
		TradeSide:        side,
		Type:             model.OrderType(r.Type),
		Size:             r.Size,
		Price:            r.Price,
		Status:           model.OrderStatus(r.Status),
		ExchangeOrderID:  r.ExchangeOrderID,
		TransactionHash:  r.TransactionHash,
		CreatedTime:      r.CreatedTime,
		LastUpdatedTime:  r.LastUpdatedTime,
		InputAmount:      r.InputAmount,
		InputToken:       r.InputToken,
		OutputAmount:     r.OutputAmount,
		OutputToken:      r.OutputToken,
		AverageFillPrice: r.AverageFillPrice,
		FeeInfo:          map[string]interface{}(r.FeeInfo),
	}, nil
}
