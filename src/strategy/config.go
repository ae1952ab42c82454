package strategy

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DefaultStrategy        string  `envconfig:"DEFAULT_STRATEGY" default:"volatility_breakout"`
	DefaultTrailingStopPct float64 `envconfig:"DEFAULT_TRAILING_STOP_PCT" default:"5.0"`
	VolatilityBreakoutK    float64 `envconfig:"VOLATILITY_BREAKOUT_K" default:"0.5"`
}

func GetConfig() Config {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// DefaultParams is the parameter set used for symbols without an override.
func (c Config) DefaultParams() Params {
	return Params{
		ParamMAPeriod:        20,
		ParamTrailingStopPct: c.DefaultTrailingStopPct,
		ParamK:               c.VolatilityBreakoutK,
	}
}
