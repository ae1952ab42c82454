package repository

import (
	"context"
	"time"

	"autotrader/src/database"
	"autotrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TradeRepository reads and appends trade_logs rows.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance using the main read/write database.
func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Debug("Creating new TradeRepository with MainDB")

	return &TradeRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create appends a trade record. The record gets its generated ID.
func (r *TradeRepository) Create(ctx context.Context, rec *model.TradeRecord) error {
	err := r.db.WithContext(ctx).Create(rec).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "TradeRepository",
			"op":     "Create",
			"symbol": rec.Symbol,
			"side":   rec.Side,
			"status": rec.Status,
		}).WithError(err).Error("Failed to create trade record")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"trade_id": rec.ID,
		"symbol":   rec.Symbol,
	}).Debug("Trade record created")

	return nil
}

// Latest returns the newest trades first.
func (r *TradeRepository) Latest(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var trades []model.TradeRecord
	err := r.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "TradeRepository",
			"op":    "Latest",
			"limit": limit,
		}).WithError(err).Error("Failed to fetch latest trades")
		return nil, err
	}

	return trades, nil
}

// ExecutedExitsSince returns executed SELL rows at or after since, newest first.
func (r *TradeRepository) ExecutedExitsSince(ctx context.Context, since time.Time) ([]model.TradeRecord, error) {
	var trades []model.TradeRecord
	err := r.db.WithContext(ctx).
		Where("side = ? AND status = ? AND timestamp >= ?", model.SideSell, model.OrderStatusExecuted, since.UTC()).
		Order("timestamp DESC, id DESC").
		Find(&trades).Error
	return trades, err
}

// RealizedPLSince sums realized P/L of executed exits at or after since.
// A zero since covers the whole history.
func (r *TradeRepository) RealizedPLSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	trades, err := r.ExecutedExitsSince(ctx, since)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.RealizedPL)
	}
	return total, nil
}

// RecentExits returns up to limit executed SELL rows, newest first.
func (r *TradeRepository) RecentExits(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var trades []model.TradeRecord
	err := r.db.WithContext(ctx).
		Where("side = ? AND status = ?", model.SideSell, model.OrderStatusExecuted).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&trades).Error
	return trades, err
}

// ConsecutiveLosses counts the most recent executed exits with negative
// realized P/L, stopping at the first exit that did not lose.
func (r *TradeRepository) ConsecutiveLosses(ctx context.Context, lookback int) (int, error) {
	exits, err := r.RecentExits(ctx, lookback)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range exits {
		if !e.RealizedPL.IsNegative() {
			break
		}
		n++
	}
	return n, nil
}

// ExecutedCountSince counts executed orders of either side at or after since.
func (r *TradeRepository) ExecutedCountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.TradeRecord{}).
		Where("status = ? AND timestamp >= ?", model.OrderStatusExecuted, since.UTC()).
		Count(&n).Error
	return n, err
}
