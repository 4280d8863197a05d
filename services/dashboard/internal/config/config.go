package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "statementviewer/libs/config"
)

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config defines dashboard configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"DASHBOARD_HTTP_PORT"`
	} `yaml:"http"`
	API struct {
		BaseURL string        `yaml:"baseUrl" env:"API_URL"`
		Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT"`
	} `yaml:"api"`
	Cache struct {
		Backend string `yaml:"backend" env:"DASHBOARD_CACHE_BACKEND"`
		Redis   struct {
			Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
			Password string        `yaml:"password" env:"REDIS_PASSWORD"`
			DB       int           `yaml:"db" env:"REDIS_DB"`
			Prefix   string        `yaml:"prefix" env:"REDIS_PREFIX"`
			TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Notifications struct {
		DismissAfter time.Duration `yaml:"dismissAfter" env:"DASHBOARD_DISMISS_AFTER"`
	} `yaml:"notifications"`
	Display struct {
		Title          string `yaml:"title" env:"DASHBOARD_TITLE"`
		Language       string `yaml:"language" env:"DASHBOARD_LANGUAGE"`
		CurrencySymbol string `yaml:"currencySymbol" env:"DASHBOARD_CURRENCY_SYMBOL"`
		Timezone       string `yaml:"timezone" env:"DASHBOARD_TIMEZONE"`
	} `yaml:"display"`
	Sessions struct {
		IdleTimeout   time.Duration `yaml:"idleTimeout" env:"DASHBOARD_SESSION_IDLE_TIMEOUT"`
		SweepInterval time.Duration `yaml:"sweepInterval" env:"DASHBOARD_SESSION_SWEEP_INTERVAL"`
	} `yaml:"sessions"`
	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "3000"
	cfg.API.BaseURL = "http://localhost:9090"
	cfg.Cache.Backend = CacheMemory
	cfg.Cache.Redis.Addr = "localhost:6379"
	cfg.Cache.Redis.Prefix = "statementviewer:query"
	cfg.Cache.Redis.TTL = time.Hour
	cfg.Notifications.DismissAfter = 4 * time.Second
	cfg.Display.Title = "Bank Statement Viewer"
	cfg.Display.Language = "id"
	cfg.Display.CurrencySymbol = "Rp"
	cfg.Display.Timezone = "Asia/Jakarta"
	cfg.Sessions.IdleTimeout = 30 * time.Minute
	cfg.Sessions.SweepInterval = time.Minute
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	return cfg
}

// Load reads configuration from path (or CONFIG_FILE) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := libconfig.Load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the dashboard cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: api base url required")
	}
	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return errors.New("config: redis addr required for redis cache")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.API.Timeout < 0 {
		return errors.New("config: api timeout must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Location resolves the display timezone. Empty means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Display.Timezone, err)
	}
	return loc, nil
}
