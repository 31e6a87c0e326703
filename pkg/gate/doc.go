// Package gate is the access decision engine: given a credential and a
// requested operation it produces an admit/deny verdict and, on admit,
// charges one call against the subscriber's quota.
//
// Each request walks a fixed pipeline: resolve the principal, look up the
// active usage window (which carries the plan snapshot), check the operation
// against plan and role, and only then consume quota. The ordering is a
// design invariant, not an implementation detail: a request denied by role
// or plan must never appear in usage counts. The check-and-increment itself
// is delegated to the usage ledger, which serializes it per principal.
//
// Every decision is emitted to the audit recorder fire-and-forget; audit
// loss never reverses or delays a verdict. Storage faults anywhere in the
// pipeline deny with ReasonServiceUnavailable rather than admitting blind.
//
// The engine owns no global state: resolver, registry, ledger and recorder
// are injected at construction so it can be tested with fakes.
package gate
