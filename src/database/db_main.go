package database

import (
	"fmt"
	"strings"
	"time"

	"autotrader/src/database/migrations"
	"autotrader/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MainDB is the read/write connection shared by the repositories.
var MainDB *gorm.DB

// Models lists every table owned by the application.
func Models() []interface{} {
	return []interface{}{
		&model.TradeRecord{},
		&model.DecisionRecord{},
		&model.StrategyAssignment{},
		&model.PortfolioSnapshot{},
		&model.Exception{},
		&migrations.DataMigration{},
	}
}

// Dialector picks the gorm driver from the URL scheme.
func Dialector(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgres.Open(url), nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(url, "sqlite://")), nil
	case url == ":memory:" || strings.HasPrefix(url, "file:"):
		return sqlite.Open(url), nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", url)
	}
}

// Open connects, migrates the schema and applies data migrations.
func Open(config Config) (*gorm.DB, error) {
	dialector, err := Dialector(config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if db.Dialector.Name() == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(1 * time.Hour)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return nil, fmt.Errorf("failed to run data migrations: %w", err)
	}

	return db, nil
}

// InitMainDB opens the configured database and assigns MainDB.
// Call once at startup.
func InitMainDB() error {
	config := GetConfig()
	db, err := Open(config)
	if err != nil {
		return err
	}
	MainDB = db

	logrus.WithField("dialect", db.Dialector.Name()).Info("[database] MainDB ready")
	return nil
}
