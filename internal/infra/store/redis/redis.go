package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store implements the hash-store contract on top of Redis.
type Store struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// New creates a Redis-backed store and verifies the connection.
func New(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// HGetAll returns the full hash stored at key.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	res, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s failed: %w", key, err)
	}
	return res, nil
}

// HSet upserts one field of the hash at key.
func (s *Store) HSet(ctx context.Context, key, field, value string) error {
	if err := s.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("hset %s failed: %w", key, err)
	}
	return nil
}

// HDel removes one field of the hash at key.
func (s *Store) HDel(ctx context.Context, key, field string) error {
	if err := s.rdb.HDel(ctx, key, field).Err(); err != nil {
		return fmt.Errorf("hdel %s failed: %w", key, err)
	}
	return nil
}

// Keys returns all keys matching the prefix, using SCAN to avoid blocking
// the server on large keyspaces.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s failed: %w", prefix, err)
	}
	return keys, nil
}
