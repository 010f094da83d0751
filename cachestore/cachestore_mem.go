package cachestore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMemCacheCapacity = 1_000

// Process-local cache for single-instance deployments and tests. Nothing is shared between replicas, so resolver lookups are repeated per process.
type MemCacheStore struct {
	lru *expirable.LRU[string, string]
}

var _ CacheStore = (*MemCacheStore)(nil)

// A non-positive capacity falls back to defaultMemCacheCapacity. Entries leave on TTL or when least recently used at capacity, whichever comes first.
func NewMemCacheStore(capacity int, ttl time.Duration) *MemCacheStore {
	if capacity <= 0 {
		capacity = defaultMemCacheCapacity
	}
	return &MemCacheStore{
		lru: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

// Number of live entries across all cache names.
func (s *MemCacheStore) Len() int {
	return s.lru.Len()
}

// A miss is the empty string with a nil error.
func (s *MemCacheStore) Get(ctx context.Context, name, key string) (string, error) {
	val, _ := s.lru.Get(cacheKey(name, key))
	return val, nil
}

func (s *MemCacheStore) Set(ctx context.Context, name, key string, val string) error {
	s.lru.Add(cacheKey(name, key), val)
	return nil
}

func (s *MemCacheStore) Purge(ctx context.Context, name, key string) error {
	s.lru.Remove(cacheKey(name, key))
	return nil
}
