package mongo

import "errors"

var (
	// ErrFailedToConnect is returned when all connection attempts fail.
	ErrFailedToConnect = errors.New("failed to connect to mongo")

	// ErrHealthcheckFailed is returned when a ping fails.
	ErrHealthcheckFailed = errors.New("mongo healthcheck failed")
)
