package countstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisCountPrefix    = "shadowcheck/count/"
	redisDistinctPrefix = "shadowcheck/distinct/"
)

// CountStore backed by redis. Plain counters are INCR keys; distinct counters are HyperLogLogs, so they are approximate at high cardinality.
type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.TODO()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisCountStore{Client: rdb}, nil
}

func (s *RedisCountStore) key(prefix, name, val, periodName string) (string, error) {
	p, err := lookupPeriod(periodName)
	if err != nil {
		return "", err
	}
	return prefix + p.bucket(name, val, time.Now()), nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	key, err := s.key(redisCountPrefix, name, val, period)
	if err != nil {
		return 0, err
	}
	c, err := s.Client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return c, err
}

// Writes to every period bucket in a single round-trip.
func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	now := time.Now()
	pipe := s.Client.Pipeline()
	for _, p := range periods {
		key := redisCountPrefix + p.bucket(name, val, now)
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, p.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	key, err := s.key(redisDistinctPrefix, name, bucket, period)
	if err != nil {
		return 0, err
	}
	c, err := s.Client.PFCount(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return int(c), err
}

func (s *RedisCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	now := time.Now()
	pipe := s.Client.Pipeline()
	for _, p := range periods {
		key := redisDistinctPrefix + p.bucket(name, bucket, now)
		pipe.PFAdd(ctx, key, val)
		pipe.Expire(ctx, key, p.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
