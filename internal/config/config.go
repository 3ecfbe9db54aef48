// Package config defines process configuration and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers .env, YAML and environment variables on top of New.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"time"
)

// Checkpoint backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// InstanceName is reported in every IAM result.
	InstanceName string `koanf:"instance_name"`

	// IncidentQueueSize bounds the in-memory incident queue.
	IncidentQueueSize int `koanf:"incident_queue_size"`

	HTTP       HTTPConfig       `koanf:"http"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	Clarizen   ClarizenConfig   `koanf:"clarizen"`
	Scorecard  ScorecardConfig  `koanf:"scorecard"`
}

// HTTPConfig tunes the outbound vendor transport.
type HTTPConfig struct {
	Timeout            time.Duration `koanf:"timeout"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
}

// MetricsConfig shapes the exported Prometheus series.
type MetricsConfig struct {
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`

	// Prefix is prepended to every metric name, e.g. "prod".
	Prefix string `koanf:"prefix"`

	// Labels are constant labels attached to every series.
	Labels map[string]string `koanf:"labels"`

	// RefreshInterval is how often process and queue gauges are sampled.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// CheckpointConfig selects where fetch checkpoints are persisted.
type CheckpointConfig struct {
	Backend       string `koanf:"backend"`
	Path          string `koanf:"path"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	KeyPrefix     string `koanf:"key_prefix"`
}

// ClarizenConfig holds the Clarizen IAM instance parameters.
type ClarizenConfig struct {
	Enabled    bool   `koanf:"enabled"`
	URL        string `koanf:"url"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	APIVersion string `koanf:"api_version"`
	Insecure   bool   `koanf:"insecure"`
	Proxy      bool   `koanf:"proxy"`

	// CustomMappingCreateUser and CustomMappingUpdateUser are JSON objects
	// mapping SCIM extension attributes to Clarizen user fields.
	CustomMappingCreateUser string `koanf:"custom_mapping_create_user"`
	CustomMappingUpdateUser string `koanf:"custom_mapping_update_user"`
}

// ScorecardConfig holds the SecurityScorecard instance parameters.
type ScorecardConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
	Username string `koanf:"username"`
	Insecure bool   `koanf:"insecure"`
	Proxy    bool   `koanf:"proxy"`

	// PollEnabled runs fetch-incidents in the background every FetchInterval.
	PollEnabled   bool          `koanf:"poll_enabled"`
	FetchInterval time.Duration `koanf:"fetch_interval"`
	MaxIncidents  int           `koanf:"max_incidents"`
	FetchDaysAgo  int           `koanf:"fetch_days_ago"`

	// FetchLookback widens every window below the last run so alerts
	// published late are still seen; repeats are removed by id.
	FetchLookback time.Duration `koanf:"fetch_lookback"`
	DedupeSize    int           `koanf:"dedupe_size"`
}

// New creates a Config with defaults. The context is reserved for loaders.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		InstanceName:      "default",
		IncidentQueueSize: 10_000,
		HTTP: HTTPConfig{
			Timeout:            30 * time.Second,
			BreakerTimeout:     60 * time.Second,
			BreakerMaxFailures: 5,
		},
		Metrics: MetricsConfig{
			Namespace:       "soarbridge",
			Subsystem:       "adapters",
			RefreshInterval: 10 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			Backend:   BackendFile,
			Path:      "data/checkpoints",
			RedisAddr: "localhost:6379",
			KeyPrefix: "soarbridge:checkpoint:",
		},
		Clarizen: ClarizenConfig{
			APIVersion: "V2.0",
		},
		Scorecard: ScorecardConfig{
			BaseURL:       "https://api.securityscorecard.io/",
			FetchInterval: 24 * time.Hour,
			MaxIncidents:  100,
			FetchDaysAgo:  7,
			FetchLookback: 24 * time.Hour,
			DedupeSize:    5_000,
		},
	}
}
