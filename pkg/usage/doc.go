// Package usage is the concurrency-safe counter store behind quota metering.
//
// Each principal has at most one active usage window: a plan snapshot, a
// start timestamp and a monotonically increasing call count. TryConsume is
// the single atomic primitive that checks remaining quota and increments the
// count; two concurrent calls for the same principal can never both claim the
// last unit of quota. Locking is per principal: an entry map guarded by a
// read-write mutex hands out independently lockable records, so contention on
// one subscriber never stalls another.
//
// Window rollover is lazy. Expiry is evaluated on access and a fresh window
// (count zero) replaces the old one; no background timer is needed for
// dormant principals and no count ever survives its window. The effective
// plan is re-resolved from the registry only at window creation, which is
// what gives plan edits and reassignments their next-window semantics.
//
// An optional Store persists every mutated window. Persistence failures
// abort the increment (the in-memory count is not advanced), so the counter
// is never left half-updated relative to storage.
package usage
