package credential

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// signatureLen is the number of HMAC-SHA256 bytes kept in the token.
// Truncation keeps tokens short; 64 bits is enough against forgery for
// short-lived credentials.
const signatureLen = 8

// Claims is the payload carried by a credential token.
type Claims struct {
	PrincipalID string `json:"sub"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp,omitempty"` // zero means no expiry
}

// Expired reports whether the claims are past their validity window at now.
func (c Claims) Expired(now time.Time) bool {
	return c.ExpiresAt > 0 && !now.Before(time.Unix(c.ExpiresAt, 0))
}

// Issue creates a signed credential for the given principal.
// A zero ttl produces a token without expiry.
func Issue(principalID, secret string, ttl time.Duration) (string, error) {
	if principalID == "" {
		return "", errors.Join(ErrInvalidCredential, errors.New("empty principal id"))
	}

	now := time.Now().UTC()
	claims := Claims{
		PrincipalID: principalID,
		IssuedAt:    now.Unix(),
	}
	if ttl != 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}

	data, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	payloadEnc := base64.RawURLEncoding.EncodeToString(data)
	sigEnc := base64.RawURLEncoding.EncodeToString(sign(data, secret))

	return payloadEnc + "." + sigEnc, nil
}

// Verify checks the token's signature and expiry and returns its claims.
// It fails with ErrInvalidCredential on any structural or signature problem
// and with ErrExpiredCredential when the token is past its validity window.
func Verify(token, secret string) (Claims, error) {
	var claims Claims

	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return claims, ErrInvalidCredential
	}

	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return claims, errors.Join(ErrInvalidCredential, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return claims, errors.Join(ErrInvalidCredential, err)
	}

	if subtle.ConstantTimeCompare(sig, sign(data, secret)) != 1 {
		return claims, errors.Join(ErrInvalidCredential, errors.New("signature mismatch"))
	}

	if err := json.Unmarshal(data, &claims); err != nil {
		return Claims{}, errors.Join(ErrInvalidCredential, err)
	}

	if claims.PrincipalID == "" {
		return Claims{}, errors.Join(ErrInvalidCredential, errors.New("missing principal id"))
	}

	if claims.Expired(time.Now().UTC()) {
		return claims, ErrExpiredCredential
	}

	return claims, nil
}

func sign(data []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return h.Sum(nil)[:signatureLen]
}
