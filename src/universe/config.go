package universe

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	SourceFixed     = "fixed"
	SourceCondition = "condition"
	SourceVolume    = "volume"
)

type Config struct {
	Source    string   `envconfig:"UNIVERSE_SOURCE" default:"fixed"`
	UserID    string   `envconfig:"KIS_USER_ID"`
	Seq       string   `envconfig:"CONDITION_SEARCH_SEQ" default:"0"`
	MaxCount  int      `envconfig:"CONDITION_SEARCH_MAX" default:"10"`
	MinPrice  int64    `envconfig:"CONDITION_MIN_PRICE" default:"1000"`
	MaxPrice  int64    `envconfig:"CONDITION_MAX_PRICE" default:"99999999"`
	Blacklist []string `envconfig:"BLACKLIST_SYMBOLS"`
	// Zero disables ranking of dynamic results.
	ScoringTopN int `envconfig:"SCORING_TOP_N" default:"0"`
}

func GetConfig() Config {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
