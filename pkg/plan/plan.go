package plan

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Operation identifies a gated cloud-service operation, e.g. "compute.read".
type Operation string

// Unlimited marks a plan without a call quota (-1 for SQL/BSON compatibility).
const Unlimited int64 = -1

// Plan describes a subscription tier: how many calls it allows per window
// and which operations it unlocks.
type Plan struct {
	ID                string
	Name              string
	Description       string
	QuotaLimit        int64         // calls per window, or Unlimited
	WindowDuration    time.Duration // fixed metering interval, e.g. 24h
	AllowedOperations []Operation
}

// Allows reports whether the operation is part of the plan's operation set.
// Role-based bypass is layered on top by the registry, not here.
func (p Plan) Allows(op Operation) bool {
	return slices.Contains(p.AllowedOperations, op)
}

// Validate checks the plan definition for internal consistency.
func (p Plan) Validate() error {
	if p.ID == "" {
		return errors.Join(ErrInvalidPlanConfiguration, errors.New("plan ID is required"))
	}
	if p.QuotaLimit <= 0 && p.QuotaLimit != Unlimited {
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("plan %s has non-positive quota limit: %d", p.ID, p.QuotaLimit))
	}
	if p.WindowDuration <= 0 {
		return errors.Join(ErrInvalidPlanConfiguration,
			fmt.Errorf("plan %s has non-positive window duration: %s", p.ID, p.WindowDuration))
	}
	return nil
}

// clone returns a copy that shares no mutable state with the receiver.
func (p Plan) clone() Plan {
	p.AllowedOperations = slices.Clone(p.AllowedOperations)
	return p
}
