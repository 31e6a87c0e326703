package gateway

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/gatekit/pkg/audit"
	"github.com/dmitrymomot/gatekit/pkg/credential"
	"github.com/dmitrymomot/gatekit/pkg/plan"
	"github.com/dmitrymomot/gatekit/pkg/principal"
)

// requireAdmin gates the administrative surface: a valid credential whose
// identity carries the admin role. Deactivated identities are rejected even
// if their token has not expired yet.
func (s *Service) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := credential.Verify(bearerToken(r), s.cfg.TokenSecret)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid_credential")
			return
		}

		ident, err := s.identities.Identity(r.Context(), claims.PrincipalID)
		if err != nil {
			if errors.Is(err, principal.ErrIdentityNotFound) {
				s.respondError(w, http.StatusUnauthorized, "invalid_credential")
				return
			}
			s.log.ErrorContext(r.Context(), "identity lookup failed", slog.Any("error", err))
			s.respondError(w, http.StatusServiceUnavailable, "service_unavailable")
			return
		}
		if ident.Deactivated {
			s.respondError(w, http.StatusUnauthorized, "invalid_credential")
			return
		}
		if ident.Role != principal.RoleAdmin {
			s.respondError(w, http.StatusForbidden, "admin_required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

type planPayload struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	QuotaLimit        int64    `json:"quota_limit"`
	WindowSeconds     int64    `json:"window_seconds"`
	AllowedOperations []string `json:"allowed_operations"`
}

func toPlanPayload(p plan.Plan) planPayload {
	ops := make([]string, len(p.AllowedOperations))
	for i, op := range p.AllowedOperations {
		ops[i] = string(op)
	}
	return planPayload{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		QuotaLimit:        p.QuotaLimit,
		WindowSeconds:     int64(p.WindowDuration / time.Second),
		AllowedOperations: ops,
	}
}

func (pp planPayload) toPlan() plan.Plan {
	ops := make([]plan.Operation, len(pp.AllowedOperations))
	for i, op := range pp.AllowedOperations {
		ops[i] = plan.Operation(op)
	}
	return plan.Plan{
		ID:                pp.ID,
		Name:              pp.Name,
		Description:       pp.Description,
		QuotaLimit:        pp.QuotaLimit,
		WindowDuration:    time.Duration(pp.WindowSeconds) * time.Second,
		AllowedOperations: ops,
	}
}

func (s *Service) listPlans(w http.ResponseWriter, r *http.Request) {
	plans := s.plans.Plans()
	out := make([]planPayload, len(plans))
	for i, p := range plans {
		out[i] = toPlanPayload(p)
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Service) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.plans.GetPlan(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "plan_not_found")
		return
	}
	s.respond(w, http.StatusOK, toPlanPayload(p))
}

func (s *Service) createPlan(w http.ResponseWriter, r *http.Request) {
	var pp planPayload
	if err := decodeJSON(r, &pp); err != nil {
		s.respondError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if err := s.savePlan(r, pp.toPlan()); err != nil {
		s.respondPlanError(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, pp)
}

func (s *Service) updatePlan(w http.ResponseWriter, r *http.Request) {
	var pp planPayload
	if err := decodeJSON(r, &pp); err != nil {
		s.respondError(w, http.StatusBadRequest, "malformed request")
		return
	}
	// The path, not the body, names the plan being replaced.
	pp.ID = chi.URLParam(r, "id")
	if err := s.savePlan(r, pp.toPlan()); err != nil {
		s.respondPlanError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, pp)
}

func (s *Service) savePlan(r *http.Request, p plan.Plan) error {
	return s.plans.UpdatePlanDefinition(r.Context(), p)
}

func (s *Service) respondPlanError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, plan.ErrInvalidPlanConfiguration):
		s.respondError(w, http.StatusBadRequest, "invalid_plan")
	case errors.Is(err, plan.ErrPlanNotFound):
		s.respondError(w, http.StatusNotFound, "plan_not_found")
	default:
		s.log.ErrorContext(r.Context(), "plan mutation failed", slog.Any("error", err))
		s.respondError(w, http.StatusServiceUnavailable, "service_unavailable")
	}
}

type assignRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Service) assignPlan(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil || req.PlanID == "" {
		s.respondError(w, http.StatusBadRequest, "malformed request")
		return
	}

	if err := s.plans.AssignPlan(r.Context(), chi.URLParam(r, "id"), req.PlanID); err != nil {
		s.respondPlanError(w, r, err)
		return
	}
	s.respond(w, http.StatusNoContent, nil)
}

type usagePayload struct {
	PrincipalID string    `json:"principal_id"`
	PlanID      string    `json:"plan_id"`
	Count       int64     `json:"count"`
	QuotaLimit  int64     `json:"quota_limit"`
	Remaining   int64     `json:"remaining"`
	StartedAt   time.Time `json:"started_at"`
	ResetAt     time.Time `json:"reset_at"`
}

// principalUsage reports a principal's current window; reading it never
// consumes quota.
func (s *Service) principalUsage(w http.ResponseWriter, r *http.Request) {
	win, err := s.windows.CurrentWindow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, plan.ErrNoPlanAssigned), errors.Is(err, plan.ErrPlanNotFound):
			s.respondError(w, http.StatusNotFound, "no_plan_assigned")
		default:
			s.log.ErrorContext(r.Context(), "usage lookup failed", slog.Any("error", err))
			s.respondError(w, http.StatusServiceUnavailable, "service_unavailable")
		}
		return
	}

	s.respond(w, http.StatusOK, usagePayload{
		PrincipalID: win.PrincipalID,
		PlanID:      win.Plan.ID,
		Count:       win.Count,
		QuotaLimit:  win.Plan.QuotaLimit,
		Remaining:   win.Remaining(),
		StartedAt:   win.StartedAt,
		ResetAt:     win.ExpiresAt(),
	})
}

// queryAudit exposes the decision log with filters matching audit.Criteria.
func (s *Service) queryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := audit.Criteria{
		PrincipalID: q.Get("principal_id"),
		Operation:   q.Get("operation"),
	}

	if raw := q.Get("allowed"); raw != "" {
		allowed, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "malformed request")
			return
		}
		c.Allowed = &allowed
	}
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "malformed request")
			return
		}
		c.Since = t
	}
	if raw := q.Get("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "malformed request")
			return
		}
		c.Until = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "malformed request")
			return
		}
		c.Limit = n
	}

	recs, err := s.decisions.Find(r.Context(), c)
	if err != nil {
		s.log.ErrorContext(r.Context(), "audit query failed", slog.Any("error", err))
		s.respondError(w, http.StatusServiceUnavailable, "service_unavailable")
		return
	}
	if recs == nil {
		recs = []audit.Record{}
	}
	s.respond(w, http.StatusOK, recs)
}
