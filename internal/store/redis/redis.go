package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"relief/internal/store"
)

const defaultPrefix = "relief"

// Store keeps entries as plain Redis strings under "<prefix>:<scope>:<key>".
type Store struct {
	client   redis.UniversalClient
	prefix   string
	deviceID string
}

var _ store.Store = (*Store)(nil)

// New creates a store backed by a single Redis instance.
func New(addr, password string, db int, deviceID string) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewWithClient(rdb, defaultPrefix, deviceID)
}

func NewWithClient(client redis.UniversalClient, prefix, deviceID string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix, deviceID: deviceID}
}

// Key returns the fully qualified Redis key.
func (s *Store) Key(key string, shared bool) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, store.Scope(shared, s.deviceID), key)
}

func (s *Store) Get(ctx context.Context, key string, shared bool) (string, bool, error) {
	v, err := s.client.Get(ctx, s.Key(key, shared)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, shared bool) error {
	if err := s.client.Set(ctx, s.Key(key, shared), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity, used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}
