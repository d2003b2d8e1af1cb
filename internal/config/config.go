package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	productionDBPath  = "/app/data/loans.db"
	developmentDBPath = "./loans.db"
)

// Config holds application configuration
type Config struct {
	Port               string        `env:"PORT" envDefault:"3000"`
	Environment        string        `env:"APP_ENV" envDefault:"development"`
	DBDriver           string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath             string        `env:"DB_PATH"`
	DBConn             string        `env:"DB_CONN"`
	DBBusyTimeout      time.Duration `env:"DB_BUSY_TIMEOUT" envDefault:"5s"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	CheckpointSchedule string        `env:"CHECKPOINT_SCHEDULE" envDefault:"@every 15m"`
	Cache              string        `env:"CACHE"`
	RedisAddr          string        `env:"REDIS_ADDR"`
	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"1m"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = cfg.defaultDBPath()
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("PORT is required")
	}
	switch cfg.DBDriver {
	case "sqlite":
	case "postgres":
		if cfg.DBConn == "" {
			return nil, fmt.Errorf("DB_CONN is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.DBDriver)
	}
	if cfg.DBBusyTimeout < 0 {
		return nil, fmt.Errorf("DB_BUSY_TIMEOUT must not be negative")
	}
	if cfg.Cache != "" && cfg.Cache != "memory" && cfg.Cache != "redis" {
		return nil, fmt.Errorf("CACHE must be memory or redis, got %q", cfg.Cache)
	}
	if cfg.RedisAddr != "" && cfg.Cache == "" {
		cfg.Cache = "redis"
	}
	if cfg.Cache == "redis" && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required for the redis cache")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) defaultDBPath() string {
	if c.IsProduction() {
		return productionDBPath
	}
	return developmentDBPath
}
