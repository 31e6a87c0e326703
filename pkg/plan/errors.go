package plan

import "errors"

var (
	// ErrPlanNotFound is returned when no plan exists for an ID.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrNoPlanAssigned is returned when a principal has no active plan assignment.
	ErrNoPlanAssigned = errors.New("no plan assigned to principal")

	// ErrInvalidPlanConfiguration is returned for plans that fail validation.
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")

	// ErrFailedToLoadPlans wraps Source failures during registry construction.
	ErrFailedToLoadPlans = errors.New("failed to load plans")

	// ErrPersistFailed wraps Persister failures; the in-memory state is left
	// untouched when persistence fails.
	ErrPersistFailed = errors.New("failed to persist plan mutation")
)
