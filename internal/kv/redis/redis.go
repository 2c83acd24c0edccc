// Package redis stores the app's blobs as plain string keys in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"haushalt/internal/kv"
)

// Config holds connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store maps each logical key to Prefix+key. Values never expire.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ kv.Store = (*Store)(nil)

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewWithClient(client, cfg.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, kv.Wrap(kv.OpGet, key, err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return kv.Wrap(kv.OpSet, key, s.client.Set(ctx, s.prefix+key, value, 0).Err())
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return kv.Wrap(kv.OpRemove, key, s.client.Del(ctx, s.prefix+key).Err())
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
