package repository

import (
	"context"

	"autotrader/src/database"
	"autotrader/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DecisionRepository reads and appends decision_logs rows.
type DecisionRepository struct {
	db *gorm.DB
}

func NewDecisionRepository() *DecisionRepository {
	return &DecisionRepository{db: database.MainDB}
}

func (r *DecisionRepository) WithDB(db *gorm.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) Create(ctx context.Context, rec *model.DecisionRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "DecisionRepository",
			"op":       "Create",
			"symbol":   rec.Symbol,
			"strategy": rec.StrategyName,
		}).WithError(err).Error("Failed to create decision record")
		return err
	}
	return nil
}

// Latest returns the newest decisions first, optionally for a single symbol.
func (r *DecisionRepository) Latest(ctx context.Context, symbol string, limit int) ([]model.DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx)
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	var out []model.DecisionRecord
	err := query.
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "DecisionRepository",
			"op":     "Latest",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch decisions")
		return nil, err
	}
	return out, nil
}
