package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/gatekit/pkg/plan"
)

const (
	plansCollection       = "plans"
	assignmentsCollection = "plan_assignments"
)

type planDoc struct {
	ID            string   `bson:"_id"`
	Name          string   `bson:"name"`
	Description   string   `bson:"description,omitempty"`
	QuotaLimit    int64    `bson:"quota_limit"`
	WindowSeconds int64    `bson:"window_seconds"`
	AllowedOps    []string `bson:"allowed_operations"`
}

type assignmentDoc struct {
	PrincipalID string `bson:"_id"`
	PlanID      string `bson:"plan_id"`
}

// PlanStore implements plan.Source and plan.Persister over the plans and
// plan_assignments collections.
type PlanStore struct {
	plans       *mongo.Collection
	assignments *mongo.Collection
}

// NewPlanStore creates a plan store in the given database.
func NewPlanStore(db *mongo.Database) *PlanStore {
	return &PlanStore{
		plans:       db.Collection(plansCollection),
		assignments: db.Collection(assignmentsCollection),
	}
}

// LoadPlans loads the whole plan catalog.
func (s *PlanStore) LoadPlans(ctx context.Context) (map[string]plan.Plan, error) {
	cursor, err := s.plans.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var docs []planDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make(map[string]plan.Plan, len(docs))
	for _, doc := range docs {
		ops := make([]plan.Operation, len(doc.AllowedOps))
		for i, op := range doc.AllowedOps {
			ops[i] = plan.Operation(op)
		}
		out[doc.ID] = plan.Plan{
			ID:                doc.ID,
			Name:              doc.Name,
			Description:       doc.Description,
			QuotaLimit:        doc.QuotaLimit,
			WindowDuration:    time.Duration(doc.WindowSeconds) * time.Second,
			AllowedOperations: ops,
		}
	}
	return out, nil
}

// LoadAssignments loads the principal to plan assignment table.
func (s *PlanStore) LoadAssignments(ctx context.Context) (map[string]string, error) {
	cursor, err := s.assignments.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var docs []assignmentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(docs))
	for _, doc := range docs {
		out[doc.PrincipalID] = doc.PlanID
	}
	return out, nil
}

// SavePlan upserts a plan definition.
func (s *PlanStore) SavePlan(ctx context.Context, p plan.Plan) error {
	ops := make([]string, len(p.AllowedOperations))
	for i, op := range p.AllowedOperations {
		ops[i] = string(op)
	}

	_, err := s.plans.ReplaceOne(ctx,
		bson.M{"_id": p.ID},
		planDoc{
			ID:            p.ID,
			Name:          p.Name,
			Description:   p.Description,
			QuotaLimit:    p.QuotaLimit,
			WindowSeconds: int64(p.WindowDuration / time.Second),
			AllowedOps:    ops,
		},
		options.Replace().SetUpsert(true),
	)
	return err
}

// SaveAssignment upserts a principal's plan assignment.
func (s *PlanStore) SaveAssignment(ctx context.Context, principalID, planID string) error {
	_, err := s.assignments.ReplaceOne(ctx,
		bson.M{"_id": principalID},
		assignmentDoc{PrincipalID: principalID, PlanID: planID},
		options.Replace().SetUpsert(true),
	)
	return err
}

var (
	_ plan.Source    = (*PlanStore)(nil)
	_ plan.Persister = (*PlanStore)(nil)
)
