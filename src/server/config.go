package server

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string   `envconfig:"PORT" default:"8000"`
	CorsOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost,http://localhost:5173,http://127.0.0.1:5173"`
}

func GetConfig() *Config {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
