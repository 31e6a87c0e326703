package audit

import "time"

// Record is one access decision: who asked for what, what the engine said,
// and why. Append-only; records are never updated.
type Record struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Operation   string    `json:"operation"`
	Allowed     bool      `json:"allowed"`
	Reason      string    `json:"reason"`
	Remaining   int64     `json:"remaining"` // quota left after the decision; -1 when unmetered or unknown
	CreatedAt   time.Time `json:"created_at"`
}

// Criteria filters Reader queries. Zero fields match everything.
type Criteria struct {
	PrincipalID string
	Operation   string
	Allowed     *bool
	Since       time.Time
	Until       time.Time
	Limit       int
}

// Matches reports whether the record satisfies the criteria
// (Limit is applied by the storage, not here).
func (c Criteria) Matches(r Record) bool {
	if c.PrincipalID != "" && r.PrincipalID != c.PrincipalID {
		return false
	}
	if c.Operation != "" && r.Operation != c.Operation {
		return false
	}
	if c.Allowed != nil && r.Allowed != *c.Allowed {
		return false
	}
	if !c.Since.IsZero() && r.CreatedAt.Before(c.Since) {
		return false
	}
	if !c.Until.IsZero() && r.CreatedAt.After(c.Until) {
		return false
	}
	return true
}
