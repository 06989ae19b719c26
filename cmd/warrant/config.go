package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/xraph/warrant"
)

// config holds runtime configuration read from WARRANT_* variables.
type config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DefaultGuard       string   `envconfig:"DEFAULT_GUARD" default:"web"`
	Guards             []string `envconfig:"GUARDS" default:"web,api"`
	TenancyEnabled     bool     `envconfig:"TENANCY_ENABLED" default:"false"`
	RequireTenant      bool     `envconfig:"REQUIRE_TENANT" default:"false"`
	IncludeGlobalRoles bool     `envconfig:"INCLUDE_GLOBAL_ROLES" default:"false"`

	DiscoveryFile string `envconfig:"DISCOVERY_FILE"`

	// CacheMode is "none", "memory" or "redis".
	CacheMode    string        `envconfig:"CACHE" default:"memory"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	CacheMaxSize int           `envconfig:"CACHE_MAX_SIZE" default:"10000"`
	RedisAddr    string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	MetricsPath string `envconfig:"METRICS_PATH" default:"/metrics"`
}

func loadConfig() (*config, error) {
	var cfg config
	if err := envconfig.Process("warrant", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *config) engineConfig() warrant.Config {
	return warrant.Config{
		TenancyEnabled:     c.TenancyEnabled,
		RequireTenant:      c.RequireTenant,
		IncludeGlobalRoles: c.IncludeGlobalRoles,
		DefaultGuard:       c.DefaultGuard,
		Guards:             c.Guards,
		CacheTTL:           c.CacheTTL,
	}
}

func newLogger(c *config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
