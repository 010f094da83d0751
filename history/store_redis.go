package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisHistoryPrefix string = "shadowcheck/history/"

// Store backed by one redis list per fingerprint. Append is a single MULTI/EXEC of RPUSH and LTRIM, so a bucket never exceeds MaxItems even with many writers.
type RedisStore struct {
	Client   *redis.Client
	MaxItems int
	// idle buckets expire after this long
	TTL time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(redisURL string, maxItems int) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &RedisStore{
		Client:   rdb,
		MaxItems: maxItems,
		TTL:      90 * 24 * time.Hour,
	}, nil
}

func (s *RedisStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := redisHistoryPrefix + rec.Key
	_, err = s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, b)
		pipe.LTrim(ctx, key, int64(-s.MaxItems), -1)
		if s.TTL > 0 {
			pipe.Expire(ctx, key, s.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("appending history for %s: %w", rec.Key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]Record, error) {
	vals, err := s.Client.LRange(ctx, redisHistoryPrefix+key, 0, -1).Result()
	if err == redis.Nil {
		return []Record{}, nil
	} else if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(vals))
	for _, v := range vals {
		var rec Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			slog.Warn("skipping unparseable history record", "key", key, "err", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
