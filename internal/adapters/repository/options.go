package repository

import "time"

// Option applies a configuration option to the RedisStore.
type Option func(*RedisStore)

// WithKeyPrefix namespaces checkpoint keys.
func WithKeyPrefix(prefix string) Option {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL expires checkpoints that are not refreshed. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *RedisStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}
