package usage

import "context"

// Store persists usage windows. Implementations must be safe for concurrent
// use; the ledger calls SaveWindow while holding the owning principal's lock,
// so writes for one principal are naturally serialized.
type Store interface {
	// SaveWindow upserts the principal's current window.
	SaveWindow(ctx context.Context, w Window) error
}
