// Package gateway exposes the decision engine over HTTP.
//
// It is an adapter layer: all semantics live in gate, plan, usage and audit;
// the gateway only translates requests into engine calls and verdicts into
// status codes. Three surfaces are mounted on one chi router:
//
//   - POST /auth/login issues a signed credential for an identity that
//     presents the right secret. It stands in for an external token issuer.
//   - GET /cloudapi/{operation} is the gated surface: bearer credential in,
//     one quota unit charged on admission.
//   - /plans, /principals and /audit are the administrative surface,
//     reachable only with an admin-role credential.
//
// Verdicts map onto stable status codes: credential failures 401, operation
// or plan denials 403, exhausted quota 429 with a Retry-After header, and
// infrastructure faults 503.
package gateway
