package countstore

import (
	"context"
	"sync"
	"time"
)

type memBucket struct {
	count    int
	distinct map[string]struct{}
	expires  time.Time
}

// how often writes scan the whole map for expired buckets
const memSweepInterval = time.Minute

// In-process CountStore, for single-instance deployments and tests. Buckets expire on the same schedule as the redis implementation. Expired buckets are dropped when read, and by a periodic sweep on write, so the map stays bounded by what is live.
type MemCountStore struct {
	mu        sync.Mutex
	buckets   map[string]*memBucket
	lastSweep time.Time
	now       func() time.Time
}

var _ CountStore = (*MemCountStore)(nil)

func NewMemCountStore() *MemCountStore {
	return &MemCountStore{
		buckets: make(map[string]*memBucket),
		now:     time.Now,
	}
}

// caller must hold the lock
func (s *MemCountStore) live(key string, now time.Time) *memBucket {
	b, ok := s.buckets[key]
	if !ok {
		return nil
	}
	if now.After(b.expires) {
		delete(s.buckets, key)
		return nil
	}
	return b
}

func (s *MemCountStore) read(name, val, periodName string) (*memBucket, error) {
	p, err := lookupPeriod(periodName)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return s.live(p.bucket(name, val, now), now), nil
}

// caller must hold the lock
func (s *MemCountStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < memSweepInterval {
		return
	}
	s.lastSweep = now
	for key, b := range s.buckets {
		if now.After(b.expires) {
			delete(s.buckets, key)
		}
	}
}

func (s *MemCountStore) update(name, val string, fn func(b *memBucket)) {
	now := s.now()
	s.sweep(now)
	for _, p := range periods {
		key := p.bucket(name, val, now)
		b := s.live(key, now)
		if b == nil {
			b = &memBucket{}
			s.buckets[key] = b
		}
		b.expires = now.Add(p.ttl)
		fn(b)
	}
}

func (s *MemCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.read(name, val, period)
	if err != nil || b == nil {
		return 0, err
	}
	return b.count, nil
}

func (s *MemCountStore) Increment(ctx context.Context, name, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update(name, val, func(b *memBucket) { b.count++ })
	return nil
}

func (s *MemCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.read(name, bucket, period)
	if err != nil || b == nil {
		return 0, err
	}
	return len(b.distinct), nil
}

func (s *MemCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.update(name, bucket, func(b *memBucket) {
		if b.distinct == nil {
			b.distinct = make(map[string]struct{})
		}
		b.distinct[val] = struct{}{}
	})
	return nil
}
