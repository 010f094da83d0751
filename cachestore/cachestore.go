package cachestore

import (
	"context"
	"encoding/json"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}

func cacheKey(name, key string) string {
	return name + "/" + key
}

// Fetches and decodes a JSON value. Returns false (and no error) on a cache miss.
func GetJSON(ctx context.Context, c CacheStore, name, key string, out any) (bool, error) {
	raw, err := c.Get(ctx, name, key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, c CacheStore, name, key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.Set(ctx, name, key, string(b))
}
