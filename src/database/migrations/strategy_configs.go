package migrations

import (
	"gorm.io/gorm"
)

type activeConfigRow struct {
	ID     uint
	Symbol string
}

// deactivateStaleStrategyConfigs leaves at most one active strategy_configs
// row per symbol: the most recently updated one.
func deactivateStaleStrategyConfigs(db *gorm.DB) error {
	var rows []activeConfigRow
	if err := db.Table("strategy_configs").
		Select("id, symbol").
		Where("active = ?", true).
		Order("symbol, updated_at DESC, id DESC").
		Scan(&rows).Error; err != nil {
		return err
	}

	var stale []uint
	seen := map[string]bool{}
	for _, r := range rows {
		if seen[r.Symbol] {
			stale = append(stale, r.ID)
			continue
		}
		seen[r.Symbol] = true
	}
	if len(stale) == 0 {
		return nil
	}

	return db.Table("strategy_configs").
		Where("id IN ?", stale).
		Update("active", false).Error
}

// backfillDecisionAction marks rows written before action tracking as skipped.
func backfillDecisionAction(db *gorm.DB) error {
	return db.Table("decision_logs").
		Where("action_taken IS NULL OR action_taken = ''").
		Update("action_taken", "SKIPPED").Error
}
