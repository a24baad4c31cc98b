package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Descent struct {
		LearningRate   float64 `env:"GD_LEARNING_RATE" envDefault:"0.01"`
		Iterations     int     `env:"GD_ITERATIONS" envDefault:"10000"`
		MaxCostHistory int     `env:"GD_MAX_COST_HISTORY" envDefault:"100000"`
		Snapshots      int     `env:"GD_SNAPSHOTS" envDefault:"10"`
		MaxIterations  int     `env:"GD_MAX_ITERATIONS" envDefault:"10000000"`
	}
	Jobs struct {
		TTL          time.Duration `env:"FIT_TTL" envDefault:"1h"`
		SweepWorkers int           `env:"FIT_SWEEP_WORKERS" envDefault:"4"`
	}
	Metrics struct {
		Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the descent defaults and job settings.
func (c *Config) Validate() error {
	switch {
	case c.Descent.LearningRate <= 0:
		return fmt.Errorf("GD_LEARNING_RATE must be positive, got %v", c.Descent.LearningRate)
	case c.Descent.Iterations < 0:
		return fmt.Errorf("GD_ITERATIONS must be non-negative, got %d", c.Descent.Iterations)
	case c.Descent.MaxCostHistory < 0:
		return fmt.Errorf("GD_MAX_COST_HISTORY must be non-negative, got %d", c.Descent.MaxCostHistory)
	case c.Descent.Snapshots < 0:
		return fmt.Errorf("GD_SNAPSHOTS must be non-negative, got %d", c.Descent.Snapshots)
	case c.Descent.MaxIterations < c.Descent.Iterations:
		return fmt.Errorf("GD_MAX_ITERATIONS (%d) is below GD_ITERATIONS (%d)", c.Descent.MaxIterations, c.Descent.Iterations)
	case c.Jobs.SweepWorkers < 1:
		return fmt.Errorf("FIT_SWEEP_WORKERS must be at least 1, got %d", c.Jobs.SweepWorkers)
	case c.Jobs.TTL <= 0:
		return fmt.Errorf("FIT_TTL must be positive, got %v", c.Jobs.TTL)
	}
	return nil
}
