package gateway

import "errors"

var (
	// ErrMissingTokenSecret is returned by New when the config carries no
	// signing secret; the gateway cannot issue or verify credentials without it.
	ErrMissingTokenSecret = errors.New("gateway: token secret is required")
)
