// Package config loads the sync layer configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Supabase SupabaseConfig `yaml:"supabase"`
	Redis    RedisConfig    `yaml:"redis"`
	Sync     SyncConfig     `yaml:"sync"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	LogLevel string         `yaml:"log_level" env:"LOG_LEVEL"`
}

// SupabaseConfig holds backend connection settings.
type SupabaseConfig struct {
	URL           string `yaml:"url" env:"SUPABASE_URL"`
	AnonKey       string `yaml:"anon_key" env:"SUPABASE_ANON_KEY"`
	EmailFunction string `yaml:"email_function" env:"SUPABASE_EMAIL_FUNCTION"`
}

// RedisConfig holds the optional redis snapshot store settings. When
// disabled, snapshots live in process memory.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED"`
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// SyncConfig tunes the synchronization core.
type SyncConfig struct {
	DebounceMS       int `yaml:"debounce_ms" env:"SYNC_DEBOUNCE_MS"`
	PageSize         int `yaml:"page_size" env:"SYNC_PAGE_SIZE"`
	SnapshotTTLHours int `yaml:"snapshot_ttl_hours" env:"SYNC_SNAPSHOT_TTL_HOURS"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Addr    string `yaml:"addr" env:"METRICS_ADDR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Supabase: SupabaseConfig{
			EmailFunction: "send-status-email",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Sync: SyncConfig{
			DebounceMS:       500,
			PageSize:         100,
			SnapshotTTLHours: 24,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9091",
		},
		LogLevel: "info",
	}
}

// Load reads the config file at path over the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the config file if it exists; otherwise defaults plus
// environment overrides. Validation errors still fail.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	return nil
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if c.Supabase.URL == "" {
		return fmt.Errorf("supabase url is required")
	}
	if c.Supabase.AnonKey == "" {
		return fmt.Errorf("supabase anon key is required")
	}
	if c.Sync.DebounceMS < 0 {
		return fmt.Errorf("sync debounce must not be negative")
	}
	if c.Sync.PageSize <= 0 {
		return fmt.Errorf("sync page size must be positive")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}
	return nil
}

// Quiescence returns the refresh debounce window.
func (c *Config) Quiescence() time.Duration {
	return time.Duration(c.Sync.DebounceMS) * time.Millisecond
}

// SnapshotTTL returns how long cached snapshots stay readable.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Sync.SnapshotTTLHours) * time.Hour
}
