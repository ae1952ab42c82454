package repository

import (
	"context"
	"time"

	"autotrader/src/database"
	"autotrader/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SnapshotRepository reads and appends portfolio_snapshots rows.
type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{db: database.MainDB}
}

func (r *SnapshotRepository) WithDB(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func (r *SnapshotRepository) Create(ctx context.Context, snap *model.PortfolioSnapshot) error {
	if err := r.db.WithContext(ctx).Create(snap).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SnapshotRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create portfolio snapshot")
		return err
	}
	return nil
}

// Latest returns the newest snapshot, or (nil, nil) when none exists.
func (r *SnapshotRepository) Latest(ctx context.Context) (*model.PortfolioSnapshot, error) {
	var rows []model.PortfolioSnapshot
	err := r.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// LastBefore returns the newest snapshot strictly before t, or (nil, nil).
func (r *SnapshotRepository) LastBefore(ctx context.Context, t time.Time) (*model.PortfolioSnapshot, error) {
	var rows []model.PortfolioSnapshot
	err := r.db.WithContext(ctx).
		Where("timestamp < ?", t.UTC()).
		Order("timestamp DESC, id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// Since returns snapshots at or after t in chronological order.
func (r *SnapshotRepository) Since(ctx context.Context, t time.Time) ([]model.PortfolioSnapshot, error) {
	var rows []model.PortfolioSnapshot
	err := r.db.WithContext(ctx).
		Where("timestamp >= ?", t.UTC()).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
