// Package config loads process configuration from the environment. It is the
// only place environment variables are read.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds everything the relay needs at construction time.
type Config struct {
	Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4o" validate:"required"`
	BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1" validate:"required,url"`

	// APIKey takes precedence over the parameter store when set.
	APIKey      string `env:"OPENAI_API_KEY"`
	ParamPrefix string `env:"PARAM_PREFIX" validate:"required_without=APIKey"`

	UpstreamHeaderTimeout time.Duration `env:"UPSTREAM_HEADER_TIMEOUT" envDefault:"60s" validate:"gte=0"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`

	DevAddr string `env:"DEV_ADDR" envDefault:":8080"`
}

var validate = validator.New()

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.ParamPrefix = strings.TrimRight(strings.TrimSpace(cfg.ParamPrefix), "/")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints declared on Config.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
