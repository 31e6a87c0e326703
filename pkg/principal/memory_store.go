package principal

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-memory IdentityWriter for tests and single-binary runs.
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[string]Identity
}

// NewMemoryStore returns an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]Identity),
	}
}

// Identity loads an identity by ID.
func (s *MemoryStore) Identity(ctx context.Context, id string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ident, ok := s.identities[id]
	if !ok {
		return Identity{}, ErrIdentityNotFound
	}
	return cloneIdentity(ident), nil
}

// CreateIdentity stores a new identity, rejecting duplicate IDs.
func (s *MemoryStore) CreateIdentity(ctx context.Context, ident Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[ident.ID]; ok {
		return ErrIdentityExists
	}
	s.identities[ident.ID] = cloneIdentity(ident)
	return nil
}

// SetDeactivated flips the active state of an identity.
func (s *MemoryStore) SetDeactivated(ctx context.Context, id string, deactivated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.identities[id]
	if !ok {
		return ErrIdentityNotFound
	}
	ident.Deactivated = deactivated
	s.identities[id] = ident
	return nil
}

// SetRole updates the role of an identity. Takes effect on the next resolve,
// including for credentials issued before the change.
func (s *MemoryStore) SetRole(ctx context.Context, id string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.identities[id]
	if !ok {
		return ErrIdentityNotFound
	}
	ident.Role = role
	s.identities[id] = ident
	return nil
}

// cloneIdentity copies the identity so callers cannot mutate stored state.
func cloneIdentity(ident Identity) Identity {
	ident.SecretHash = slices.Clone(ident.SecretHash)
	return ident
}
