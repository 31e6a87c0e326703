package gateway

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/gatekit/pkg/gate"
	"github.com/dmitrymomot/gatekit/pkg/plan"
)

type decisionResponse struct {
	Allowed     bool      `json:"allowed"`
	Reason      string    `json:"reason"`
	PrincipalID string    `json:"principal_id,omitempty"`
	Operation   string    `json:"operation"`
	Remaining   int64     `json:"remaining"`
	ResetAt     time.Time `json:"reset_at,omitzero"`
}

// invoke is the gated surface: one authorized call charges one quota unit.
func (s *Service) invoke(w http.ResponseWriter, r *http.Request) {
	op := plan.Operation(chi.URLParam(r, "operation"))
	v := s.engine.Authorize(r.Context(), bearerToken(r), op)

	status := verdictStatus(v)
	if retry := v.RetryAfter(s.now()); retry > 0 {
		w.Header().Set("Retry-After",
			strconv.FormatInt(int64(math.Ceil(retry.Seconds())), 10))
	}

	s.respond(w, status, decisionResponse{
		Allowed:     v.Allowed,
		Reason:      string(v.Reason),
		PrincipalID: v.PrincipalID,
		Operation:   string(v.Operation),
		Remaining:   v.Remaining,
		ResetAt:     v.ResetAt,
	})
}

// verdictStatus maps deny reasons onto the stable status contract.
func verdictStatus(v gate.Verdict) int {
	if v.Allowed {
		return http.StatusOK
	}
	switch v.Reason {
	case gate.ReasonInvalidCredential, gate.ReasonExpiredCredential:
		return http.StatusUnauthorized
	case gate.ReasonOperationNotAllowed, gate.ReasonUnknownPlan:
		return http.StatusForbidden
	case gate.ReasonQuotaExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusServiceUnavailable
	}
}
