package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/gatekit/pkg/usage"
)

const usageCollection = "usage_windows"

type windowDoc struct {
	PrincipalID   string    `bson:"_id"`
	PlanID        string    `bson:"plan_id"`
	QuotaLimit    int64     `bson:"quota_limit"`
	WindowSeconds int64     `bson:"window_seconds"`
	AllowedOps    []string  `bson:"allowed_operations"`
	StartedAt     time.Time `bson:"started_at"`
	Count         int64     `bson:"count"`
}

// UsageStore implements usage.Store over the usage_windows collection. One
// document per principal holds the current window; rollovers replace it.
type UsageStore struct {
	col *mongo.Collection
}

// NewUsageStore creates a usage store in the given database.
func NewUsageStore(db *mongo.Database) *UsageStore {
	return &UsageStore{col: db.Collection(usageCollection)}
}

// SaveWindow upserts the principal's current window.
func (s *UsageStore) SaveWindow(ctx context.Context, w usage.Window) error {
	ops := make([]string, len(w.Plan.AllowedOperations))
	for i, op := range w.Plan.AllowedOperations {
		ops[i] = string(op)
	}

	_, err := s.col.ReplaceOne(ctx,
		bson.M{"_id": w.PrincipalID},
		windowDoc{
			PrincipalID:   w.PrincipalID,
			PlanID:        w.Plan.ID,
			QuotaLimit:    w.Plan.QuotaLimit,
			WindowSeconds: int64(w.Plan.WindowDuration / time.Second),
			AllowedOps:    ops,
			StartedAt:     w.StartedAt,
			Count:         w.Count,
		},
		options.Replace().SetUpsert(true),
	)
	return err
}

var _ usage.Store = (*UsageStore)(nil)
