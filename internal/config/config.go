// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Errors returned by Load wrap ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"time"
)

// Store kinds accepted by the store setting.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the record store backend.
	Store string `koanf:"store"`

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// Redis connection used when Store is redis.
	RedisAddr      string `koanf:"redis_addr"`
	RedisPassword  string `koanf:"redis_password"`
	RedisDB        int    `koanf:"redis_db"`
	RedisKeyPrefix string `koanf:"redis_key_prefix"`

	// CatalogURL points at the static game catalog document.
	CatalogURL       string `koanf:"catalog_url"`
	CatalogTimeoutMS int    `koanf:"catalog_timeout_ms"`

	// AuthSecret signs and verifies bearer tokens. AuthIssuer is checked
	// when set.
	AuthSecret string `koanf:"auth_secret"`
	AuthIssuer string `koanf:"auth_issuer"`

	// NotifyBuffer bounds each subscriber's pending change queue.
	NotifyBuffer int `koanf:"notify_buffer"`

	// DedupeSize sets the size of the idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// SubmitRatePerSec and SubmitBurst throttle POST /scores per owner.
	SubmitRatePerSec float64 `koanf:"submit_rate_per_sec"`
	SubmitBurst      int     `koanf:"submit_burst"`

	// Locale drives display formatting, e.g. es-ES.
	Locale string `koanf:"locale"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		Store:            StoreMemory,
		SQLitePath:       "scorekeep.db",
		RedisAddr:        "localhost:6379",
		RedisKeyPrefix:   "scorekeep:",
		CatalogURL:       "https://jritsqmet.github.io/web-api/videojuegos.json",
		CatalogTimeoutMS: 5000,
		AuthIssuer:       "scorekeep",
		NotifyBuffer:     64,
		DedupeSize:       50_000,
		SubmitRatePerSec: 5,
		SubmitBurst:      10,
		Locale:           "es-ES",
	}
}

// CatalogTimeout returns CatalogTimeoutMS as a duration.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.CatalogTimeoutMS) * time.Millisecond
}
