package repository

import (
	"context"
	"fmt"

	"github.com/okian/soarbridge/internal/config"
)

// Open builds the store selected by the checkpoint configuration.
func Open(ctx context.Context, cfg config.CheckpointConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		store, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendRedis:
		client, err := DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, WithKeyPrefix(cfg.KeyPrefix)), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrBackend, cfg.Backend)
	}
}
