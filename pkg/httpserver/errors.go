package httpserver

import "errors"

var (
	// ErrStart indicates the server failed to start or crashed while serving.
	ErrStart = errors.New("failed to start HTTP server")
	// ErrShutdown indicates graceful shutdown did not complete.
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)
