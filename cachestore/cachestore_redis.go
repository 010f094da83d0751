package cachestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

const (
	redisCachePrefix = "shadowcheck/cache/"
	// entries held in the process-local TinyLFU in front of redis
	localCacheSize = 10_000
)

// CacheStore backed by redis, with a small in-process layer so hot keys skip the network.
type RedisCacheStore struct {
	Data *cache.Cache
	TTL  time.Duration
}

var _ CacheStore = (*RedisCacheStore)(nil)

func NewRedisCacheStore(redisURL string, ttl time.Duration) (*RedisCacheStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisCacheStore{
		Data: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: cache.NewTinyLFU(localCacheSize, ttl),
		}),
		TTL: ttl,
	}, nil
}

func (s *RedisCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	var val string
	err := s.Data.Get(ctx, redisCachePrefix+cacheKey(name, key), &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", nil
	}
	return val, err
}

func (s *RedisCacheStore) Set(ctx context.Context, name, key string, val string) error {
	return s.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisCachePrefix + cacheKey(name, key),
		Value: val,
		TTL:   s.TTL,
	})
}

func (s *RedisCacheStore) Purge(ctx context.Context, name, key string) error {
	err := s.Data.Delete(ctx, redisCachePrefix+cacheKey(name, key))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
