// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration for the simulation daemon.
type Config struct {
	DBPath       string        `env:"CIVGRID_DB_PATH" envDefault:"civgrid.db"`
	TickInterval time.Duration `env:"CIVGRID_TICK_INTERVAL" envDefault:"1s"`
	TicksPerYear int           `env:"CIVGRID_TICKS_PER_YEAR" envDefault:"60"`
	Seed         int64         `env:"CIVGRID_SEED" envDefault:"0"`
	LogLevel     string        `env:"CIVGRID_LOG_LEVEL" envDefault:"info"`

	WorldName     string  `env:"CIVGRID_WORLD_NAME" envDefault:"Aurelia"`
	WorldWidth    int     `env:"CIVGRID_WORLD_WIDTH" envDefault:"60"`
	WorldHeight   int     `env:"CIVGRID_WORLD_HEIGHT" envDefault:"40"`
	Continents    int     `env:"CIVGRID_CONTINENTS" envDefault:"3"`
	WaterCoverage float64 `env:"CIVGRID_WATER_COVERAGE" envDefault:"0.55"`
	Civilizations int     `env:"CIVGRID_CIVILIZATIONS" envDefault:"4"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.TicksPerYear <= 0 {
		return fmt.Errorf("ticks per year must be positive, got %d", c.TicksPerYear)
	}
	if c.WorldWidth < 4 || c.WorldHeight < 4 {
		return fmt.Errorf("world must be at least 4x4, got %dx%d", c.WorldWidth, c.WorldHeight)
	}
	if c.WaterCoverage < 0 || c.WaterCoverage > 0.95 {
		return fmt.Errorf("water coverage must be in [0, 0.95], got %g", c.WaterCoverage)
	}
	if c.Civilizations < 1 {
		return fmt.Errorf("need at least one civilization, got %d", c.Civilizations)
	}
	return nil
}
