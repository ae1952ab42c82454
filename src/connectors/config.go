package connectors

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppKey    string `envconfig:"KIS_APP_KEY"`
	AppSecret string `envconfig:"KIS_APP_SECRET"`
	AccountNo string `envconfig:"KIS_ACCOUNT_NO"`
	UserID    string `envconfig:"KIS_USER_ID"`
	MockTrade bool   `envconfig:"MOCK_TRADE" default:"true"`
	// Overrides the endpoint picked from MOCK_TRADE. Empty means derive.
	BaseURL string `envconfig:"KIS_BASE_URL"`

	MinInterval time.Duration `envconfig:"KIS_MIN_INTERVAL" default:"250ms"`
	MaxAttempts int           `envconfig:"KIS_MAX_ATTEMPTS" default:"3"`
	BackoffMin  time.Duration `envconfig:"KIS_BACKOFF_MIN" default:"2s"`
	BackoffMax  time.Duration `envconfig:"KIS_BACKOFF_MAX" default:"10s"`
	HTTPTimeout time.Duration `envconfig:"KIS_HTTP_TIMEOUT" default:"30s"`

	DataDir string `envconfig:"DATA_DIR" default:"."`
}

func GetConfig() Config {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// GateConfig extracts the rate-limit and retry settings.
func (c Config) GateConfig() GateConfig {
	return GateConfig{
		MinInterval: c.MinInterval,
		MaxAttempts: c.MaxAttempts,
		BackoffMin:  c.BackoffMin,
		BackoffMax:  c.BackoffMax,
	}
}
