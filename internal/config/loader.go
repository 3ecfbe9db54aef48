package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read by Load.
const (
	EnvPrefix  = "SOAR_"
	EnvConfig  = "SOAR_CONFIG"
	EnvEnvFile = "SOAR_ENV_FILE"

	defaultEnvFile = ".env"
	nestedSep      = "__"
)

// Load builds a Config by layering defaults, optional files, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if SOAR_CONFIG is set
//  3. env (prefix SOAR_, "__" separates nested keys), after loading
//     SOAR_ENV_FILE (default .env) into the process environment
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SOAR_LOG_LEVEL -> log_level, SOAR_CLARIZEN__URL -> clarizen.url
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, nestedSep, ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads the env file without overriding variables that are
// already set. A missing default file is not an error.
func loadDotEnv() error {
	path := os.Getenv(EnvEnvFile)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.IncidentQueueSize <= 0 {
		return fmt.Errorf("%w: incident_queue_size must be positive", ErrInvalidConfig)
	}
	if c.Metrics.RefreshInterval <= 0 {
		return fmt.Errorf("%w: metrics.refresh_interval must be positive", ErrInvalidConfig)
	}
	switch c.Checkpoint.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Checkpoint.Path == "" {
			return fmt.Errorf("%w: checkpoint.path is required for the file backend", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.Checkpoint.RedisAddr == "" {
			return fmt.Errorf("%w: checkpoint.redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown checkpoint backend %q", ErrInvalidConfig, c.Checkpoint.Backend)
	}
	if c.Clarizen.Enabled && c.Clarizen.URL == "" {
		return fmt.Errorf("%w: clarizen.url is required", ErrInvalidConfig)
	}
	if c.Scorecard.Enabled {
		if c.Scorecard.BaseURL == "" || c.Scorecard.APIKey == "" {
			return fmt.Errorf("%w: scorecard.base_url and scorecard.api_key are required", ErrInvalidConfig)
		}
		if c.Scorecard.PollEnabled && c.Scorecard.FetchInterval <= 0 {
			return fmt.Errorf("%w: scorecard.fetch_interval must be positive", ErrInvalidConfig)
		}
	}
	return nil
}
