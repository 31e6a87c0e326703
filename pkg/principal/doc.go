// Package principal turns an opaque credential into a validated principal:
// a caller identity with its current role and subscription plan assignment.
//
// The resolver verifies the credential signature/expiry, then loads the
// identity and plan assignment fresh from their stores on every call. Role
// and plan are never cached beyond a single request, so administrative
// changes (role change, plan reassignment, deactivation) take effect for
// tokens that were issued before the change.
//
// Identity storage is abstracted behind IdentityStore; an in-memory
// implementation is provided for tests and single-binary deployments, a
// Mongo-backed one lives in pkg/mongo.
package principal
