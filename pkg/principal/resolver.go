package principal

import (
	"context"
	"errors"

	"github.com/dmitrymomot/gatekit/pkg/credential"
)

// PlanIDResolver returns the active plan assignment for a principal.
// The plan registry provides one; resolution happens per request so plan
// reassignments apply to already-issued credentials.
type PlanIDResolver func(ctx context.Context, principalID string) (string, error)

// Resolver validates credentials and produces request-scoped principals.
type Resolver struct {
	store       IdentityStore
	secret      string
	resolvePlan PlanIDResolver
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPlanIDResolver wires the plan registry's assignment lookup into the
// resolver. Without it resolved principals carry an empty PlanID.
func WithPlanIDResolver(fn PlanIDResolver) ResolverOption {
	return func(r *Resolver) { r.resolvePlan = fn }
}

// NewResolver creates a Resolver over the given identity store and token secret.
func NewResolver(store IdentityStore, secret string, opts ...ResolverOption) *Resolver {
	if store == nil {
		panic("principal: identity store cannot be nil")
	}

	r := &Resolver{
		store:  store,
		secret: secret,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve verifies the credential and loads the caller's identity, role and
// plan assignment fresh from the stores.
//
// Failure modes:
//   - credential.ErrInvalidCredential: malformed token, bad signature,
//     unknown or deactivated identity
//   - credential.ErrExpiredCredential: token past its validity window
//   - ErrStoreUnavailable: the identity store could not be reached
func (r *Resolver) Resolve(ctx context.Context, cred string) (Principal, error) {
	claims, err := credential.Verify(cred, r.secret)
	if err != nil {
		return Principal{}, err
	}

	ident, err := r.store.Identity(ctx, claims.PrincipalID)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			// An unknown subject is indistinguishable from a forged token
			// to the caller.
			return Principal{}, errors.Join(credential.ErrInvalidCredential, err)
		}
		return Principal{}, errors.Join(ErrStoreUnavailable, err)
	}

	if ident.Deactivated {
		return Principal{}, errors.Join(credential.ErrInvalidCredential, ErrIdentityDeactivated)
	}

	p := Principal{
		ID:   ident.ID,
		Name: ident.Name,
		Role: ident.Role,
	}

	if r.resolvePlan != nil {
		planID, err := r.resolvePlan(ctx, ident.ID)
		if err == nil {
			p.PlanID = planID
		}
		// A missing assignment is not an authentication failure; the
		// decision engine denies with unknown_plan when it matters.
	}

	return p, nil
}
