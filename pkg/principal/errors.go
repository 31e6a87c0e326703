package principal

import "errors"

var (
	// ErrIdentityNotFound is returned when no identity exists for an ID.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrIdentityExists is returned when creating an identity with a taken ID.
	ErrIdentityExists = errors.New("identity already exists")

	// ErrIdentityDeactivated is returned for identities that have been
	// deactivated; their credentials no longer resolve.
	ErrIdentityDeactivated = errors.New("identity deactivated")

	// ErrStoreUnavailable wraps identity store failures so callers can
	// distinguish infrastructure faults from authentication failures.
	ErrStoreUnavailable = errors.New("identity store unavailable")
)
