package executors

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the six-field cron schedules, evaluated in the market
// timezone.
type Config struct {
	TradeCron         string        `envconfig:"TRADE_CRON" default:"*/10 * 9-15 * * MON-FRI"`
	LiquidateCron     string        `envconfig:"LIQUIDATE_CRON" default:"0 19 15 * * MON-FRI"`
	SnapshotCron      string        `envconfig:"SNAPSHOT_CRON" default:"0 */5 * * * *"`
	ReconcileCron     string        `envconfig:"RECONCILE_CRON" default:"0 0,30 * * * *"`
	UniverseCron      string        `envconfig:"UNIVERSE_CRON" default:"0 50 8 * * MON-FRI"`
	BroadcastInterval time.Duration `envconfig:"BROADCAST_INTERVAL" default:"5s"`
	// Run discovery once at startup instead of waiting for UniverseCron.
	DiscoverOnStart bool `envconfig:"DISCOVER_ON_START" default:"true"`
}

func GetConfig() Config {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
