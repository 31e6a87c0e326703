package credential

import "errors"

var (
	// ErrInvalidCredential is returned for malformed tokens and signature mismatches.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrExpiredCredential is returned when a well-formed token is past its expiry.
	ErrExpiredCredential = errors.New("expired credential")
)
