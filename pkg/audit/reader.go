package audit

import "context"

// Reader is the query surface handed to the observability layer.
type Reader struct {
	storage Storage
}

// NewReader creates a Reader over the given storage.
func NewReader(storage Storage) *Reader {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	return &Reader{storage: storage}
}

// Find retrieves decision records matching the criteria.
func (r *Reader) Find(ctx context.Context, c Criteria) ([]Record, error) {
	return r.storage.Query(ctx, c)
}

// Count returns the number of matching records. Backed by Query; storage
// implementations with native counting should be preferred for large sets.
func (r *Reader) Count(ctx context.Context, c Criteria) (int64, error) {
	c.Limit = 0
	recs, err := r.storage.Query(ctx, c)
	if err != nil {
		return 0, err
	}
	return int64(len(recs)), nil
}
