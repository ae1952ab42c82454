package migrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DataMigration tracks executed data migrations.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

func ensureDataMigrationsTable(db *gorm.DB) error {
	return db.AutoMigrate(&DataMigration{})
}

// RunOnce runs fn inside a transaction unless migrationID is already
// recorded. The id is recorded in the same transaction.
func RunOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) error {
	_, err := runOnce(db, migrationID, fn)
	return err
}

func runOnce(db *gorm.DB, migrationID string, fn func(*gorm.DB) error) (bool, error) {
	switch {
	case db == nil:
		return false, nil
	case migrationID == "":
		return false, errors.New("migration id is empty")
	case fn == nil:
		return false, fmt.Errorf("migration %q has no body", migrationID)
	}

	if err := ensureDataMigrationsTable(db); err != nil {
		return false, fmt.Errorf("ensure data migrations table: %w", err)
	}

	applied := false
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&DataMigration{}).Where("id = ?", migrationID).Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %q: %w", migrationID, err)
		}
		if count > 0 {
			return nil
		}
		if err := fn(tx); err != nil {
			return fmt.Errorf("run migration %q: %w", migrationID, err)
		}
		if err := tx.Create(&DataMigration{ID: migrationID, AppliedAt: time.Now().UTC()}).Error; err != nil {
			return fmt.Errorf("record migration %q: %w", migrationID, err)
		}
		applied = true
		return nil
	})
	return applied, err
}

type migration struct {
	id string
	fn func(*gorm.DB) error
}

// Ordered data migrations. Ids are permanent; append only.
var dataMigrations = []migration{
	{id: "00001_single_active_strategy_config", fn: deactivateStaleStrategyConfigs},
	{id: "00002_backfill_decision_action", fn: backfillDecisionAction},
}

// Run applies every pending data migration in order.
func Run(db *gorm.DB) error {
	for _, m := range dataMigrations {
		applied, err := runOnce(db, m.id, m.fn)
		if err != nil {
			return err
		}
		if applied {
			logrus.WithField("migration", m.id).Info("[database] data migration applied")
		}
	}
	return nil
}
