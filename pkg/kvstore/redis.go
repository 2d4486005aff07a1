package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RedisConfig struct {
	URL          string
	Prefix       string
	MaxRetries   int
	RetryBackoff time.Duration
	PoolSize     int
	MinIdleConns int
}

type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zerolog.Logger
}

// NewRedisStore connects to redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger *zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryBackoff > 0 {
		opts.MinRetryBackoff = cfg.RetryBackoff
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.Prefix, logger), nil
}

func NewRedisStoreFromClient(client *redis.Client, prefix string, logger *zerolog.Logger) *RedisStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return result, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Ping is used by the readiness probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	s.logger.Debug().Msg("closing redis store")
	return s.client.Close()
}
