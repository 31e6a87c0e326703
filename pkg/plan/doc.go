// Package plan holds subscription plan definitions and the active plan
// assignment per principal.
//
// A plan defines an API-call quota, the window the quota is measured over,
// and the set of operations the plan unlocks. The registry keeps plans and
// assignments in memory (loaded once from a Source at startup) and applies
// administrative mutations immediately to its own state while optionally
// writing them through a Persister.
//
// Mutations never take effect mid-window for a metered principal: the usage
// ledger snapshots the effective plan into each usage window at creation, so
// a definition edit or reassignment is observed by a principal at its next
// window rollover. The registry itself is read-mostly and safe for concurrent
// use; writes take a brief exclusive section.
//
// Admin-role principals bypass the plan's operation set but not its quota:
// they get the full API surface and are still metered.
package plan
