package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heysubinoy/pyazgate/pkg/kv"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the connection to a Redis server.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// ScanCount is the COUNT hint passed to each SCAN call.
	ScanCount int64

	DialTimeout time.Duration
	// IOTimeout bounds each read and write on a pooled connection.
	IOTimeout time.Duration
}

// RedisStore is a kv.Store backed by a Redis database.
// The underlying client keeps a connection pool and is safe for
// concurrent use.
type RedisStore struct {
	client    *redis.Client
	scanCount int64
}

var (
	_ kv.Store       = (*RedisStore)(nil)
	_ kv.MultiGetter = (*RedisStore)(nil)
	_ kv.Pinger      = (*RedisStore)(nil)
)

// NewRedisStore creates a client for opts. No connection is made until the
// first command.
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.IOTimeout,
		WriteTimeout: opts.IOTimeout,
		// Failed commands are surfaced to the caller, never retried.
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	})
	return newRedisStore(client, opts.ScanCount)
}

func newRedisStore(client *redis.Client, scanCount int64) *RedisStore {
	if scanCount <= 0 {
		scanCount = 100
	}
	return &RedisStore{client: client, scanCount: scanCount}
}

// Keys walks the keyspace with SCAN. SCAN may return a key more than once
// while the keyspace is being rehashed, so results are de-duplicated.
func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	keys := []string{}

	iter := s.client.Scan(ctx, 0, "*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, kv.Unavailable("redis scan", err)
	}
	return keys, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, kv.Unavailable("redis get", err)
	}
	return value, true, nil
}

// GetMany reads keys with a single MGET. Keys that no longer exist are
// omitted from the result.
func (s *RedisStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, kv.Unavailable("redis mget", err)
	}
	for i, v := range values {
		switch v := v.(type) {
		case nil:
		case string:
			result[keys[i]] = v
		default:
			return nil, kv.Unavailable("redis mget", fmt.Errorf("unexpected reply type %T for key %q", v, keys[i]))
		}
	}
	return result, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return kv.Unavailable("redis set", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return kv.Unavailable("redis ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
