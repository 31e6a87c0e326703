package usage

import "errors"

var (
	// ErrQuotaExhausted is returned when a consume attempt would push the
	// window count past the plan's quota limit.
	ErrQuotaExhausted = errors.New("quota exhausted")

	// ErrInvalidAmount is returned for non-positive consume amounts.
	ErrInvalidAmount = errors.New("consume amount must be positive")

	// ErrPersistFailed wraps Store failures. The increment is rolled back,
	// so a failed persist never leaves the counter ahead of storage.
	ErrPersistFailed = errors.New("failed to persist usage window")
)
