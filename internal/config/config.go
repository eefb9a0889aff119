// Package config loads the console's own settings from a YAML file
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the daemon and TUI need at startup.
type Config struct {
	// Listen is the HTTP bind address.
	Listen string `yaml:"listen"`
	// Bus selects the broker, system or session.
	Bus string `yaml:"bus"`
	// ReconnectInterval paces the fixed-interval bus reconnect loop.
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	// AlertTTL is how long a transient alert stays up.
	AlertTTL time.Duration `yaml:"alert_ttl"`
	// PageSize is the signal count per table page.
	PageSize int `yaml:"page_size"`
}

// Default returns the settings used when no file or override is given.
func Default() Config {
	return Config{
		Listen:            ":8080",
		Bus:               "system",
		ReconnectInterval: 3 * time.Second,
		AlertTTL:          10 * time.Second,
		PageSize:          10,
	}
}

// Load reads path when non-empty, then applies environment overrides.
// A missing file with an empty path is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TFC_CONSOLE_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("TFC_CONSOLE_BUS"); v != "" {
		cfg.Bus = v
	}
	if v := os.Getenv("TFC_CONSOLE_RECONNECT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ReconnectInterval = d
		}
	}
	if v := os.Getenv("TFC_CONSOLE_ALERT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AlertTTL = d
		}
	}
	if v := os.Getenv("TFC_CONSOLE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}
}

func (c Config) validate() error {
	if c.Bus != "system" && c.Bus != "session" {
		return fmt.Errorf("bus must be system or session, got %q", c.Bus)
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("reconnect_interval must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive")
	}
	return nil
}
