package plan

import (
	"context"
	"maps"
	"sync"
)

// inMemSource implements Source over plain maps, deep-copied on the way in
// and out so callers cannot alias registry state.
type inMemSource struct {
	mu          sync.RWMutex
	plans       map[string]Plan
	assignments map[string]string
}

// NewInMemSource returns an in-memory Source seeded with the given plans and
// assignments. Either argument may be nil.
func NewInMemSource(plans map[string]Plan, assignments map[string]string) Source {
	plansCopy := make(map[string]Plan, len(plans))
	for id, p := range plans {
		plansCopy[id] = p.clone()
	}

	return &inMemSource{
		plans:       plansCopy,
		assignments: maps.Clone(assignments),
	}
}

func (s *inMemSource) LoadPlans(ctx context.Context) (map[string]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Plan, len(s.plans))
	for id, p := range s.plans {
		out[id] = p.clone()
	}
	return out, nil
}

func (s *inMemSource) LoadAssignments(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.assignments == nil {
		return map[string]string{}, nil
	}
	return maps.Clone(s.assignments), nil
}
