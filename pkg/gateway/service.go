package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/gatekit/pkg/audit"
	"github.com/dmitrymomot/gatekit/pkg/gate"
	"github.com/dmitrymomot/gatekit/pkg/plan"
	"github.com/dmitrymomot/gatekit/pkg/principal"
	"github.com/dmitrymomot/gatekit/pkg/usage"
)

// IdentityStore is the slice of the identity store the gateway needs for
// login and admin-role checks.
type IdentityStore interface {
	Identity(ctx context.Context, id string) (principal.Identity, error)
}

// PlanAdmin is the administrative surface of the plan registry.
type PlanAdmin interface {
	Plans() []plan.Plan
	GetPlan(planID string) (plan.Plan, error)
	UpdatePlanDefinition(ctx context.Context, p plan.Plan) error
	AssignPlan(ctx context.Context, principalID, planID string) error
	ActivePlanID(ctx context.Context, principalID string) (string, error)
}

// UsageReader reads a principal's current window without consuming quota.
type UsageReader interface {
	CurrentWindow(ctx context.Context, principalID string) (usage.Window, error)
}

// Authorizer is the decision engine's request-path surface.
type Authorizer interface {
	Authorize(ctx context.Context, cred string, op plan.Operation) gate.Verdict
}

// AuditReader queries recorded decisions.
type AuditReader interface {
	Find(ctx context.Context, c audit.Criteria) ([]audit.Record, error)
}

// Service holds the gateway's collaborators and builds its router.
type Service struct {
	cfg        Config
	identities IdentityStore
	plans      PlanAdmin
	windows    UsageReader
	engine     Authorizer
	decisions  AuditReader
	log        *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a structured logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source; used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New wires the gateway service. The audit reader is optional; without it
// GET /audit responds 404.
func New(cfg Config, identities IdentityStore, plans PlanAdmin, windows UsageReader, engine Authorizer, decisions AuditReader, opts ...Option) (*Service, error) {
	if cfg.TokenSecret == "" {
		return nil, ErrMissingTokenSecret
	}

	s := &Service{
		cfg:        cfg,
		identities: identities,
		plans:      plans,
		windows:    windows,
		engine:     engine,
		decisions:  decisions,
		log:        slog.New(discardHandler{}),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router builds the gateway's HTTP surface.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", s.login)
	r.Get("/cloudapi/{operation}", s.invoke)

	r.Group(func(admin chi.Router) {
		admin.Use(s.requireAdmin)

		admin.Get("/plans", s.listPlans)
		admin.Post("/plans", s.createPlan)
		admin.Get("/plans/{id}", s.getPlan)
		admin.Put("/plans/{id}", s.updatePlan)

		admin.Put("/principals/{id}/plan", s.assignPlan)
		admin.Get("/principals/{id}/usage", s.principalUsage)

		if s.decisions != nil {
			admin.Get("/audit", s.queryAudit)
		}
	})

	return r
}

func (s *Service) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.log.Warn("response encode failed", slog.Any("error", err))
		}
	}
}

// decodeJSON parses a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

type errorPayload struct {
	Error string `json:"error"`
}

func (s *Service) respondError(w http.ResponseWriter, status int, code string) {
	s.respond(w, status, errorPayload{Error: code})
}

// discardHandler drops all log records; the default when no logger is wired.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
