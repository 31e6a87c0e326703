// Package audit records access decisions for observability.
//
// The sink is write-only from the engine's point of view and strictly
// best-effort: Record never blocks and never fails the request whose verdict
// it describes. Records flow through a buffered channel into a background
// worker that flushes batches to a Storage backend; when the buffer is full
// the record is dropped and counted rather than stalling the decision path.
// Losing an audit record is tolerable, delaying a verdict is not.
//
// The observability layer consumes records through Reader, an append-only
// query surface over the same Storage. Retention is the storage's concern.
package audit
