package audit

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage keeps records in memory with an optional cap; when the cap
// is reached the oldest records are discarded. Suitable for tests and
// single-binary deployments.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []Record
	maxSize int
}

// MemoryStorageOption configures a MemoryStorage.
type MemoryStorageOption func(*MemoryStorage)

// WithMaxRecords caps retention; zero means unbounded.
func WithMaxRecords(n int) MemoryStorageOption {
	return func(s *MemoryStorage) { s.maxSize = n }
}

// NewMemoryStorage returns an empty in-memory storage.
func NewMemoryStorage(opts ...MemoryStorageOption) *MemoryStorage {
	s := &MemoryStorage{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStorage) Store(ctx context.Context, rec Record) error {
	return s.StoreBatch(ctx, []Record{rec})
}

func (s *MemoryStorage) StoreBatch(ctx context.Context, recs []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, recs...)
	if s.maxSize > 0 && len(s.records) > s.maxSize {
		s.records = slices.Clone(s.records[len(s.records)-s.maxSize:])
	}
	return nil
}

func (s *MemoryStorage) Query(ctx context.Context, c Criteria) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for _, rec := range s.records {
		if c.Matches(rec) {
			out = append(out, rec)
			if c.Limit > 0 && len(out) >= c.Limit {
				break
			}
		}
	}
	return out, nil
}

// Len returns the number of retained records.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
