// Package config loads engine configuration from the environment and holds the settings that
// can change while the engine runs.
package config

import (
	"runtime"
	"time"

	"mirage/internal/logging"

	"github.com/caarlos0/env/v11"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config is the startup configuration of the engine.
type Config struct {
	// Window size in screen coordinates.
	WindowWidth  int    `env:"MIRAGE_WINDOW_WIDTH" envDefault:"1280"`
	WindowHeight int    `env:"MIRAGE_WINDOW_HEIGHT" envDefault:"720"`
	WindowTitle  string `env:"MIRAGE_WINDOW_TITLE" envDefault:"Mirage"`
	VSync        bool   `env:"MIRAGE_VSYNC" envDefault:"false"`

	// FPSLimit caps the frame rate. Zero means unlimited.
	FPSLimit int `env:"MIRAGE_FPS_LIMIT" envDefault:"0"`

	// MaxStep is the largest delta time Update ever receives.
	MaxStep time.Duration `env:"MIRAGE_MAX_STEP" envDefault:"250ms"`

	// FixedStep, when non-zero, replaces the measured delta time.
	FixedStep time.Duration `env:"MIRAGE_FIXED_STEP" envDefault:"0s"`

	// AssetWorkers is the decode pool size. Zero picks NumCPU-1.
	AssetWorkers int    `env:"MIRAGE_ASSET_WORKERS" envDefault:"0"`
	AssetQueue   int    `env:"MIRAGE_ASSET_QUEUE" envDefault:"256"`
	AssetRoot    string `env:"MIRAGE_ASSET_ROOT" envDefault:"assets"`

	// Device loss recovery.
	DeviceRetries       int           `env:"MIRAGE_DEVICE_RETRIES" envDefault:"5"`
	DeviceRetryInterval time.Duration `env:"MIRAGE_DEVICE_RETRY_INTERVAL" envDefault:"100ms"`

	// ShutdownTimeout bounds the wait for outstanding GPU work on exit.
	ShutdownTimeout time.Duration `env:"MIRAGE_SHUTDOWN_TIMEOUT" envDefault:"2s"`

	// SlowFrame is the frame time above which a warning is logged.
	SlowFrame time.Duration `env:"MIRAGE_SLOW_FRAME" envDefault:"50ms"`

	// Log level ("debug", "info", "warn", "error") and format ("json", "pretty").
	LogLevel  string `env:"MIRAGE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"MIRAGE_LOG_FORMAT" envDefault:"pretty"`

	// Profile enables pkg/profile output ("", "cpu", "mem").
	Profile string `env:"MIRAGE_PROFILE"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to parse engine config")
	}

	if err := cfg.validate(); err != nil {
		return cfg, eris.Wrap(err, "failed to validate engine config")
	}

	return cfg, nil
}

// Workers returns the effective asset worker count.
func (cfg *Config) Workers() int {
	if cfg.AssetWorkers > 0 {
		return cfg.AssetWorkers
	}
	return max(1, runtime.NumCPU()-1)
}

func (cfg *Config) validate() error {
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		return eris.Errorf("invalid window size %dx%d", cfg.WindowWidth, cfg.WindowHeight)
	}
	if cfg.FPSLimit < 0 {
		return eris.Errorf("fps limit cannot be negative: %d", cfg.FPSLimit)
	}
	if cfg.MaxStep <= 0 {
		return eris.New("max step must be positive")
	}
	if cfg.FixedStep < 0 || cfg.FixedStep > cfg.MaxStep {
		return eris.Errorf("fixed step %s must be within [0, %s]", cfg.FixedStep, cfg.MaxStep)
	}
	if cfg.AssetWorkers < 0 {
		return eris.New("asset workers cannot be negative")
	}
	if cfg.AssetQueue <= 0 {
		return eris.New("asset queue must be positive")
	}
	if cfg.DeviceRetries < 0 {
		return eris.New("device retries cannot be negative")
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", cfg.LogLevel)
	}
	if _, ok := logging.ParseFormat(cfg.LogFormat); !ok {
		return eris.Errorf("invalid log format: %s (must be 'json' or 'pretty')", cfg.LogFormat)
	}
	switch cfg.Profile {
	case "", "cpu", "mem":
	default:
		return eris.Errorf("invalid profile mode: %s (must be 'cpu' or 'mem')", cfg.Profile)
	}
	return nil
}
