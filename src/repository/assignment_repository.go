package repository

import (
	"context"
	"time"

	"autotrader/src/database"
	"autotrader/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AssignmentRepository manages per-symbol strategy overrides.
type AssignmentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAssignmentRepository() *AssignmentRepository {
	return &AssignmentRepository{db: database.MainDB, now: time.Now}
}

func (r *AssignmentRepository) WithDB(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db, now: time.Now}
}

// ActiveFor returns the authoritative active assignment for symbol,
// or (nil, nil) when the symbol uses the default strategy.
func (r *AssignmentRepository) ActiveFor(ctx context.Context, symbol string) (*model.StrategyAssignment, error) {
	var rows []model.StrategyAssignment
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND active = ?", symbol, true).
		Order("updated_at DESC, id DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "AssignmentRepository",
			"op":     "ActiveFor",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch strategy assignment")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Assign deactivates any active rows for the symbol and inserts a new active
// one, in a single transaction.
func (r *AssignmentRepository) Assign(
	ctx context.Context,
	symbol string,
	strategyName string,
	params map[string]any,
) (*model.StrategyAssignment, error) {

	now := r.now().UTC()
	row := &model.StrategyAssignment{
		Symbol:       symbol,
		StrategyName: strategyName,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := row.SetParams(params); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.StrategyAssignment{}).
			Where("symbol = ? AND active = ?", symbol, true).
			Update("active", false).Error; err != nil {
			return err
		}
		return tx.Create(row).Error
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "AssignmentRepository",
			"op":       "Assign",
			"symbol":   symbol,
			"strategy": strategyName,
		}).WithError(err).Error("Failed to assign strategy")
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "AssignmentRepository",
		"op":       "Assign",
		"symbol":   symbol,
		"strategy": strategyName,
	}).Info("Strategy assigned")

	return row, nil
}

// Active returns every active assignment ordered by symbol.
func (r *AssignmentRepository) Active(ctx context.Context) ([]model.StrategyAssignment, error) {
	var rows []model.StrategyAssignment
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("symbol ASC, updated_at DESC").
		Find(&rows).Error
	return rows, err
}
