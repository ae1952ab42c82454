package risk

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	EntryStart           string   `envconfig:"ENTRY_START" default:"09:05"`
	EntryEnd             string   `envconfig:"ENTRY_END" default:"15:00"`
	Timezone             string   `envconfig:"MARKET_TIMEZONE" default:"Asia/Seoul"`
	DailyLossLimitPct    float64  `envconfig:"DAILY_LOSS_LIMIT_PCT" default:"3.0"`
	ConsecutiveLossLimit int      `envconfig:"CONSECUTIVE_LOSS_LIMIT" default:"3"`
	MaxDailyTrades       int      `envconfig:"MAX_DAILY_TRADES" default:"10"`
	Holidays             []string `envconfig:"MARKET_HOLIDAYS"`
}

func GetConfig() Config {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
