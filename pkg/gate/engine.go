package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gatekit/pkg/audit"
	"github.com/dmitrymomot/gatekit/pkg/credential"
	"github.com/dmitrymomot/gatekit/pkg/plan"
	"github.com/dmitrymomot/gatekit/pkg/principal"
	"github.com/dmitrymomot/gatekit/pkg/usage"
)

// PrincipalResolver authenticates a credential into a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, cred string) (principal.Principal, error)
}

// PlanRegistry is the slice of the plan registry the engine needs.
type PlanRegistry interface {
	IsOperationAllowed(p plan.Plan, role principal.Role, op plan.Operation) bool
}

// UsageLedger is the slice of the usage ledger the engine needs.
type UsageLedger interface {
	CurrentWindow(ctx context.Context, principalID string) (usage.Window, error)
	TryConsume(ctx context.Context, principalID string, amount int64) (usage.Window, error)
}

// AuditRecorder receives decision records. Implementations must be
// non-blocking; audit.AsyncWriter satisfies this by contract.
type AuditRecorder interface {
	Record(rec audit.Record) error
}

// Engine orchestrates resolver, registry and ledger into a single
// authorization decision per request.
type Engine struct {
	resolver PrincipalResolver
	registry PlanRegistry
	ledger   UsageLedger
	recorder AuditRecorder
	log      *slog.Logger
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithAuditRecorder attaches the decision record sink.
func WithAuditRecorder(r AuditRecorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger attaches a structured logger for non-verdict diagnostics.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides the time source; used by tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine wires the injected collaborators into a decision engine.
func NewEngine(resolver PrincipalResolver, registry PlanRegistry, ledger UsageLedger, opts ...EngineOption) *Engine {
	if resolver == nil {
		panic("gate: principal resolver cannot be nil")
	}
	if registry == nil {
		panic("gate: plan registry cannot be nil")
	}
	if ledger == nil {
		panic("gate: usage ledger cannot be nil")
	}

	e := &Engine{
		resolver: resolver,
		registry: registry,
		ledger:   ledger,
		log:      slog.New(discardHandler{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authorize decides whether the holder of cred may invoke op, charging one
// call of quota on admission. All outcomes, including infrastructure
// faults, come back as a typed Verdict; the method itself never fails.
func (e *Engine) Authorize(ctx context.Context, cred string, op plan.Operation) Verdict {
	v := e.authorize(ctx, cred, op)
	e.emit(v)
	return v
}

func (e *Engine) authorize(ctx context.Context, cred string, op plan.Operation) Verdict {
	p, err := e.resolver.Resolve(ctx, cred)
	if err != nil {
		return Verdict{Operation: op, Reason: classifyAuthError(err)}
	}

	// The window carries the plan snapshot for this metering interval;
	// opening it consumes nothing.
	w, err := e.ledger.CurrentWindow(ctx, p.ID)
	if err != nil {
		return Verdict{
			PrincipalID: p.ID,
			Operation:   op,
			Reason:      classifyPlanError(err),
		}
	}

	// Authorization strictly precedes metering: a role/plan denial must
	// leave the usage count untouched.
	if !e.registry.IsOperationAllowed(w.Plan, p.Role, op) {
		return Verdict{
			PrincipalID: p.ID,
			Operation:   op,
			Reason:      ReasonOperationNotAllowed,
			Remaining:   w.Remaining(),
			ResetAt:     w.ExpiresAt(),
		}
	}

	w, err = e.ledger.TryConsume(ctx, p.ID, 1)
	if err != nil {
		if errors.Is(err, usage.ErrQuotaExhausted) {
			return Verdict{
				PrincipalID: p.ID,
				Operation:   op,
				Reason:      ReasonQuotaExhausted,
				Remaining:   0,
				ResetAt:     w.ExpiresAt(),
			}
		}
		e.log.ErrorContext(ctx, "usage consume failed",
			slog.String("principal_id", p.ID),
			slog.String("operation", string(op)),
			slog.Any("error", err))
		return Verdict{
			PrincipalID: p.ID,
			Operation:   op,
			Reason:      classifyPlanError(err),
		}
	}

	return Verdict{
		Allowed:     true,
		Reason:      ReasonAdmitted,
		PrincipalID: p.ID,
		Operation:   op,
		Remaining:   w.Remaining(),
		ResetAt:     w.ExpiresAt(),
	}
}

// emit sends the decision to the audit sink, fire-and-forget.
func (e *Engine) emit(v Verdict) {
	if e.recorder == nil {
		return
	}

	rec := audit.Record{
		ID:          uuid.New().String(),
		PrincipalID: v.PrincipalID,
		Operation:   string(v.Operation),
		Allowed:     v.Allowed,
		Reason:      string(v.Reason),
		Remaining:   v.Remaining,
		CreatedAt:   e.now().UTC(),
	}
	if err := e.recorder.Record(rec); err != nil {
		e.log.Warn("audit record dropped", slog.Any("error", err))
	}
}

// classifyAuthError maps resolver failures onto deny reasons.
func classifyAuthError(err error) Reason {
	switch {
	case errors.Is(err, credential.ErrExpiredCredential):
		return ReasonExpiredCredential
	case errors.Is(err, credential.ErrInvalidCredential):
		return ReasonInvalidCredential
	default:
		// Identity store faults and anything unexpected: deny safe.
		return ReasonServiceUnavailable
	}
}

// classifyPlanError maps window/plan resolution and persistence failures.
func classifyPlanError(err error) Reason {
	switch {
	case errors.Is(err, plan.ErrNoPlanAssigned), errors.Is(err, plan.ErrPlanNotFound):
		return ReasonUnknownPlan
	default:
		return ReasonServiceUnavailable
	}
}

// discardHandler drops all log records; the default when no logger is wired.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
