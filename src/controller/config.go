package controller

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	TargetSymbols  []string `envconfig:"TARGET_SYMBOLS" default:"005930,000660"`
	BudgetRatio    float64  `envconfig:"BUDGET_RATIO" default:"0.5"`
	TradingEnabled bool     `envconfig:"TRADING_ENABLED" default:"true"`
	// Executed exits inspected when counting the current losing streak.
	LossStreakLookback int `envconfig:"LOSS_STREAK_LOOKBACK" default:"50"`
}

func GetConfig() Config {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
