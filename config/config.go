// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds settings shared by the server and generator binaries.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"cashflow.db"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`

	// Generator worker settings.
	GeneratorInterval time.Duration `env:"GENERATOR_INTERVAL" envDefault:"1h"`
}

// Load reads .env (ignored when absent, as in production containers)
// and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.GeneratorInterval <= 0 {
		return Config{}, fmt.Errorf("invalid GENERATOR_INTERVAL %v", cfg.GeneratorInterval)
	}
	return cfg, nil
}
