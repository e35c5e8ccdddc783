package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from GATEKEEPER_* environment variables.
type Config struct {
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	BasePath    string `envconfig:"BASE_PATH" default:""`
	Migrate     bool   `envconfig:"MIGRATE" default:"true"`
	SeedAdmin   bool   `envconfig:"SEED_ADMIN" default:"true"`
	AdminRole   string `envconfig:"ADMIN_ROLE" default:"Administrator"`
	Environment string `envconfig:"ENV" default:"development"`
}

// LoadConfig reads the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("gatekeeper", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("load config: unknown log format %q", cfg.LogFormat)
	}
	return &cfg, nil
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewLogger builds the process logger.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level(), AddSource: c.Environment != "development"}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
