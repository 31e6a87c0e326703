// Package credential implements the opaque credential tokens the gateway
// issues at login and the access engine verifies on every request.
//
// A credential is a base64url JSON claims payload followed by a truncated
// HMAC-SHA256 signature. Tokens are self-describing but not self-sufficient:
// verification only proves the token was issued by a holder of the secret and
// has not expired. Role and plan data are never embedded, they are looked up
// fresh by the principal resolver so that administrative changes apply to
// already-issued tokens.
//
// Usage:
//
//	tok, err := credential.Issue("user-1", secret, time.Hour)
//	...
//	claims, err := credential.Verify(tok, secret)
//	if errors.Is(err, credential.ErrExpiredCredential) {
//	    // ask the caller to log in again
//	}
package credential
