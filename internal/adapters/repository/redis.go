package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/okian/soarbridge/internal/domain/model"
)

const defaultKeyPrefix = "soarbridge:checkpoint:"

// RedisStore keeps checkpoints as JSON strings in Redis.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.Cmdable, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: connect to redis %s: %w", ErrBackend, addr, err)
	}
	return client, nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, key string) (cp model.Checkpoint, err error) {
	defer func(start time.Time) { observe("redis", "load", start, err) }(time.Now())

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("%w: get %s: %w", ErrBackend, key, err)
	}
	if err := json.Unmarshal(raw, &cp); err != nil {
		return model.Checkpoint{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return cp, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, key string, cp model.Checkpoint) (err error) {
	defer func(start time.Time) { observe("redis", "save", start, err) }(time.Now())

	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrBackend, key, err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrBackend, key, err)
	}
	return nil
}
