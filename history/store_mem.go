package history

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type bucket struct {
	mu      sync.Mutex
	records []Record
}

// In-process Store. Each fingerprint has its own lock, so checks on different entities never contend.
type MemStore struct {
	MaxItems int
	buckets  *xsync.MapOf[string, *bucket]
}

var _ Store = (*MemStore)(nil)

func NewMemStore(maxItems int) *MemStore {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &MemStore{
		MaxItems: maxItems,
		buckets:  xsync.NewMapOf[string, *bucket](),
	}
}

func (s *MemStore) Append(ctx context.Context, rec Record) error {
	b, _ := s.buckets.LoadOrCompute(rec.Key, func() *bucket {
		return &bucket{}
	})
	b.mu.Lock()
	defer b.mu.Unlock()
	rec.Flags = append([]string{}, rec.Flags...)
	b.records = truncate(append(b.records, rec), s.MaxItems)
	return nil
}

func (s *MemStore) Get(ctx context.Context, key string) ([]Record, error) {
	b, ok := s.buckets.Load(key)
	if !ok {
		return []Record{}, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, len(b.records))
	copy(out, b.records)
	return out, nil
}

// Number of distinct fingerprints with history.
func (s *MemStore) Len() int {
	return s.buckets.Size()
}
