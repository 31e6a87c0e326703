package principal

import "context"

// IdentityStore is the read surface the resolver depends on.
type IdentityStore interface {
	// Identity loads the identity record for the given ID.
	// Returns ErrIdentityNotFound when no such identity exists.
	Identity(ctx context.Context, id string) (Identity, error)
}

// IdentityWriter extends IdentityStore with the administrative mutations
// used by the gateway's mock login and account management endpoints.
type IdentityWriter interface {
	IdentityStore

	// CreateIdentity stores a new identity.
	// Returns ErrIdentityExists when the ID is already taken.
	CreateIdentity(ctx context.Context, ident Identity) error

	// SetDeactivated flips the active state of an identity.
	// Accounts are never deleted, only deactivated.
	SetDeactivated(ctx context.Context, id string, deactivated bool) error
}
