package usage

import (
	"time"

	"github.com/dmitrymomot/gatekit/pkg/plan"
)

// Window is one principal's active metering interval. The plan is a snapshot
// taken at window creation; registry edits never mutate a live window.
type Window struct {
	PrincipalID string
	Plan        plan.Plan
	StartedAt   time.Time
	Count       int64
}

// ExpiresAt returns the instant the window rolls over.
func (w Window) ExpiresAt() time.Time {
	return w.StartedAt.Add(w.Plan.WindowDuration)
}

// Expired reports whether the window is past its duration at now.
func (w Window) Expired(now time.Time) bool {
	return !now.Before(w.ExpiresAt())
}

// Remaining returns how many calls are left in the window, or plan.Unlimited
// for unmetered plans.
func (w Window) Remaining() int64 {
	if w.Plan.QuotaLimit == plan.Unlimited {
		return plan.Unlimited
	}
	if w.Count >= w.Plan.QuotaLimit {
		return 0
	}
	return w.Plan.QuotaLimit - w.Count
}
