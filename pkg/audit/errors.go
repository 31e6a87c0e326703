package audit

import "errors"

var (
	// ErrWriterClosed is returned by Record after the writer shut down.
	ErrWriterClosed = errors.New("audit writer closed")
)
