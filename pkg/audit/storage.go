package audit

import "context"

// Storage persists and queries decision records. Implementations must be
// safe for concurrent use. StoreBatch should be atomic where the backend
// allows it; the async writer prefers it for throughput.
type Storage interface {
	Store(ctx context.Context, rec Record) error
	StoreBatch(ctx context.Context, recs []Record) error
	Query(ctx context.Context, c Criteria) ([]Record, error)
}
