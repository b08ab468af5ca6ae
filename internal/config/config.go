// SignalGuard - Behavioral Signal Burst Detection
// Copyright 2026 SignalGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/signalguard/signalguard

// Package config provides layered configuration loading for SignalGuard
// using Koanf v2: built-in defaults, optional YAML file, environment
// variable overrides.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the SignalGuard server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Window     WindowConfig     `koanf:"window"`
	Redis      RedisConfig      `koanf:"redis"`
	Thresholds map[string]int   `koanf:"thresholds"`
	Alert      AlertConfig      `koanf:"alert"`
	Retry      RetryConfig      `koanf:"retry"`
	Journal    JournalConfig    `koanf:"journal"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// RateLimitReqs is the per-client ingest request budget per RateLimitWindow.
	// Zero disables rate limiting.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings for the durable event/anomaly store.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" runs fully in memory.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB thread count; 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// WindowConfig holds sliding window settings.
type WindowConfig struct {
	// Backend selects the window store implementation: "memory" or "redis".
	Backend string `koanf:"backend"`

	// Horizon is the trailing interval over which events are counted.
	Horizon time.Duration `koanf:"horizon"`

	// IdleEviction is how long a user's window may go without inserts before
	// it is evicted.
	IdleEviction time.Duration `koanf:"idle_eviction"`

	// JanitorInterval is how often the memory backend sweeps idle windows.
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// RedisConfig holds connection settings for the Redis window backend.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AlertConfig holds outbound alert dispatch settings.
type AlertConfig struct {
	// WebhookURL is the alert sink endpoint. Empty disables dispatch.
	WebhookURL string `koanf:"webhook_url"`

	// Timeout bounds each delivery attempt.
	Timeout time.Duration `koanf:"timeout"`

	// QueueSize bounds the dispatch queue; full queue drops notifications
	// rather than blocking ingestion.
	QueueSize int `koanf:"queue_size"`

	// RatePerSecond caps outbound notifications. Zero means unlimited.
	RatePerSecond float64 `koanf:"rate_per_second"`

	Headers map[string]string `koanf:"headers"`
}

// RetryConfig holds the persistence retry policy.
type RetryConfig struct {
	Attempts int           `koanf:"attempts"`
	Backoff  time.Duration `koanf:"backoff"`
}

// JournalConfig holds interaction journal settings.
type JournalConfig struct {
	// Path is the JSONL interaction log file.
	Path string `koanf:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DefaultThresholdKey is the required fallback entry in the thresholds map.
const DefaultThresholdKey = "default"

// Default returns a Config with all default values applied. Useful for
// tests and tooling that bypass the layered Load path.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8380,
			Timeout:         30 * time.Second,
			RateLimitReqs:   0,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Path:      "/data/signalguard.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Window: WindowConfig{
			Backend:         "memory",
			Horizon:         5 * time.Second,
			IdleEviction:    60 * time.Second,
			JanitorInterval: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
			DB:   0,
		},
		Thresholds: map[string]int{
			DefaultThresholdKey: 10,
		},
		Alert: AlertConfig{
			WebhookURL:    "",
			Timeout:       time.Second,
			QueueSize:     256,
			RatePerSecond: 0,
		},
		Retry: RetryConfig{
			Attempts: 3,
			Backoff:  time.Second,
		},
		Journal: JournalConfig{
			Path: "/data/interactions.jsonl",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for startup-fatal errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if len(c.Thresholds) == 0 {
		return fmt.Errorf("thresholds must not be empty")
	}
	if _, ok := c.Thresholds[DefaultThresholdKey]; !ok {
		return fmt.Errorf("thresholds is missing required %q key", DefaultThresholdKey)
	}
	for signal, threshold := range c.Thresholds {
		if threshold < 1 {
			return fmt.Errorf("thresholds.%s must be positive, got %d", signal, threshold)
		}
	}

	switch c.Window.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when window.backend is redis")
		}
	default:
		return fmt.Errorf("window.backend must be memory or redis, got %q", c.Window.Backend)
	}
	if c.Window.Horizon <= 0 {
		return fmt.Errorf("window.horizon must be positive, got %s", c.Window.Horizon)
	}
	if c.Window.IdleEviction <= 0 {
		return fmt.Errorf("window.idle_eviction must be positive, got %s", c.Window.IdleEviction)
	}

	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.Backoff < 0 {
		return fmt.Errorf("retry.backoff must not be negative, got %s", c.Retry.Backoff)
	}

	if c.Alert.QueueSize < 1 {
		return fmt.Errorf("alert.queue_size must be at least 1, got %d", c.Alert.QueueSize)
	}
	if c.Alert.Timeout <= 0 {
		return fmt.Errorf("alert.timeout must be positive, got %s", c.Alert.Timeout)
	}

	return nil
}

// Threshold returns the burst threshold for a signal type, falling back to
// the default entry for unmapped types.
func (c *Config) Threshold(signalType string) int {
	if t, ok := c.Thresholds[signalType]; ok {
		return t
	}
	return c.Thresholds[DefaultThresholdKey]
}
