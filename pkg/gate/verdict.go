package gate

import (
	"time"

	"github.com/dmitrymomot/gatekit/pkg/plan"
)

// Reason explains a verdict. Deny reasons map 1:1 onto the transport
// layer's stable response categories.
type Reason string

const (
	ReasonAdmitted            Reason = "admitted"
	ReasonInvalidCredential   Reason = "invalid_credential"
	ReasonExpiredCredential   Reason = "expired_credential"
	ReasonOperationNotAllowed Reason = "operation_not_allowed"
	ReasonQuotaExhausted      Reason = "quota_exhausted"
	ReasonUnknownPlan         Reason = "unknown_plan"
	ReasonServiceUnavailable  Reason = "service_unavailable"
)

// Verdict is the outcome of an authorization check.
type Verdict struct {
	Allowed     bool
	Reason      Reason
	PrincipalID string // empty when the credential did not resolve
	Operation   plan.Operation
	Remaining   int64     // quota left after the decision; plan.Unlimited when unmetered, 0 when unknown
	ResetAt     time.Time // when the current window rolls over; zero when unknown
}

// RetryAfter returns how long the caller should wait before retrying a
// quota-denied request. Zero for any other verdict.
func (v Verdict) RetryAfter(now time.Time) time.Duration {
	if v.Reason != ReasonQuotaExhausted || v.ResetAt.IsZero() {
		return 0
	}
	if d := v.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
