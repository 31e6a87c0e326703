package plan

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrymomot/gatekit/pkg/principal"
)

// Source loads the initial plan catalog and assignments into the registry.
type Source interface {
	LoadPlans(ctx context.Context) (map[string]Plan, error)
	LoadAssignments(ctx context.Context) (map[string]string, error)
}

// Persister writes administrative mutations through to durable storage.
// The registry applies a mutation to its in-memory state only after the
// persister accepted it.
type Persister interface {
	SavePlan(ctx context.Context, p Plan) error
	SaveAssignment(ctx context.Context, principalID, planID string) error
}

// Registry is the in-memory authority for plan definitions and assignments.
type Registry struct {
	mu          sync.RWMutex
	plans       map[string]Plan
	assignments map[string]string // principalID -> planID
	persister   Persister
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPersister makes the registry write mutations through to storage.
func WithPersister(p Persister) RegistryOption {
	return func(r *Registry) { r.persister = p }
}

// NewRegistry loads and validates plans and assignments from the source.
func NewRegistry(ctx context.Context, src Source, opts ...RegistryOption) (*Registry, error) {
	plans, err := src.LoadPlans(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if plans == nil {
		plans = make(map[string]Plan)
	}
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	assignments, err := src.LoadAssignments(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if assignments == nil {
		assignments = make(map[string]string)
	}
	for principalID, planID := range assignments {
		if _, ok := plans[planID]; !ok {
			return nil, errors.Join(ErrFailedToLoadPlans,
				errors.Join(ErrPlanNotFound, errors.New("assignment for "+principalID+" references unknown plan "+planID)))
		}
	}

	r := &Registry{
		plans:       plans,
		assignments: assignments,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// GetPlan returns the current definition of a plan.
func (r *Registry) GetPlan(planID string) (Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plans[planID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p.clone(), nil
}

// Plans returns all plan definitions sorted by ID, for administrative listing.
func (r *Registry) Plans() []Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, p.clone())
	}
	slices.SortFunc(out, func(a, b Plan) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}

// IsOperationAllowed reports whether the operation may be invoked under the
// given plan and role. Admins bypass the plan's operation set (full API
// surface) but remain subject to its quota; that is the engine's job.
func (r *Registry) IsOperationAllowed(p Plan, role principal.Role, op Operation) bool {
	if role == principal.RoleAdmin {
		return true
	}
	return p.Allows(op)
}

// ActivePlanID returns the plan currently assigned to the principal.
// The usage ledger reads this only when opening a window, which is what
// makes reassignments effective at the next rollover instead of mid-window.
func (r *Registry) ActivePlanID(ctx context.Context, principalID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	planID, ok := r.assignments[principalID]
	if !ok {
		return "", ErrNoPlanAssigned
	}
	return planID, nil
}

// ActivePlan resolves the principal's assignment to its current definition.
func (r *Registry) ActivePlan(ctx context.Context, principalID string) (Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	planID, ok := r.assignments[principalID]
	if !ok {
		return Plan{}, ErrNoPlanAssigned
	}
	p, ok := r.plans[planID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p.clone(), nil
}

// AssignPlan sets the principal's plan. The assignment is recorded
// immediately but only observed by the metering path at the principal's next
// window rollover.
func (r *Registry) AssignPlan(ctx context.Context, principalID, planID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plans[planID]; !ok {
		return ErrPlanNotFound
	}

	if r.persister != nil {
		if err := r.persister.SaveAssignment(ctx, principalID, planID); err != nil {
			return errors.Join(ErrPersistFailed, err)
		}
	}

	r.assignments[principalID] = planID
	return nil
}

// UpdatePlanDefinition creates or replaces a plan definition. Active usage
// windows keep their snapshot of the previous definition until they roll
// over, so already-counted usage is never retroactively invalidated.
func (r *Registry) UpdatePlanDefinition(ctx context.Context, p Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.persister != nil {
		if err := r.persister.SavePlan(ctx, p); err != nil {
			return errors.Join(ErrPersistFailed, err)
		}
	}

	r.plans[p.ID] = p.clone()
	return nil
}

// Assignments returns a copy of the current assignment table.
func (r *Registry) Assignments() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.assignments)
}
