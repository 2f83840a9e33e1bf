// Package config defines tracker configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// SourceURL points at the Markdown rendering of the model listing.
	SourceURL string `koanf:"source_url"`

	// UserAgent is sent on source fetches.
	UserAgent string `koanf:"user_agent"`

	// FetchTimeoutSeconds bounds one fetch attempt.
	FetchTimeoutSeconds int `koanf:"fetch_timeout_seconds"`

	// FetchMaxRetries is the number of retries after the first attempt.
	FetchMaxRetries int `koanf:"fetch_max_retries"`

	// FetchRetryDelaySeconds is the base delay; it grows linearly per attempt.
	FetchRetryDelaySeconds int `koanf:"fetch_retry_delay_seconds"`

	// DatabasePath locates the SQLite file.
	DatabasePath string `koanf:"database_path"`

	// IngestIntervalHours sets the cycle cadence for daemon mode.
	IngestIntervalHours int `koanf:"ingest_interval_hours"`

	// TopN sets how many leaders are reported per cycle.
	TopN int `koanf:"top_n"`

	// MaxRankingsLimit caps GET /rankings?limit.
	MaxRankingsLimit int `koanf:"max_rankings_limit"`

	// DiscordWebhookURL receives ranking notifications.
	DiscordWebhookURL string `koanf:"discord_webhook_url"`

	// DiscordEnabled toggles notification delivery.
	DiscordEnabled bool `koanf:"discord_enabled"`
}

// FetchTimeout returns the per-attempt fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// FetchRetryDelay returns the base retry delay as a duration.
func (c *Config) FetchRetryDelay() time.Duration {
	return time.Duration(c.FetchRetryDelaySeconds) * time.Second
}

// IngestInterval returns the daemon cycle cadence as a duration.
func (c *Config) IngestInterval() time.Duration {
	return time.Duration(c.IngestIntervalHours) * time.Hour
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":9080",
		SourceURL:              "https://r.jina.ai/https://openrouter.ai/rankings",
		UserAgent:              "Mozilla/5.0 (compatible; modelrank/1.0)",
		FetchTimeoutSeconds:    30,
		FetchMaxRetries:        2,
		FetchRetryDelaySeconds: 5,
		DatabasePath:           "data/modelrank.db",
		IngestIntervalHours:    24,
		TopN:                   5,
		MaxRankingsLimit:       100,
		DiscordWebhookURL:      "",
		DiscordEnabled:         false,
	}
}
