package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/gatekit/pkg/audit"
)

const auditCollection = "decision_records"

type recordDoc struct {
	ID          string    `bson:"_id"`
	PrincipalID string    `bson:"principal_id"`
	Operation   string    `bson:"operation"`
	Allowed     bool      `bson:"allowed"`
	Reason      string    `bson:"reason"`
	Remaining   int64     `bson:"remaining"`
	CreatedAt   time.Time `bson:"created_at"`
}

// AuditStorage implements audit.Storage over the decision_records collection.
type AuditStorage struct {
	col *mongo.Collection
}

// NewAuditStorage creates audit storage in the given database.
func NewAuditStorage(db *mongo.Database) *AuditStorage {
	return &AuditStorage{col: db.Collection(auditCollection)}
}

// Store appends a single decision record.
func (s *AuditStorage) Store(ctx context.Context, rec audit.Record) error {
	_, err := s.col.InsertOne(ctx, toRecordDoc(rec))
	return err
}

// StoreBatch appends a batch of decision records.
func (s *AuditStorage) StoreBatch(ctx context.Context, recs []audit.Record) error {
	if len(recs) == 0 {
		return nil
	}
	docs := make([]any, len(recs))
	for i, rec := range recs {
		docs[i] = toRecordDoc(rec)
	}
	_, err := s.col.InsertMany(ctx, docs)
	return err
}

// Query returns records matching the criteria, newest first.
func (s *AuditStorage) Query(ctx context.Context, c audit.Criteria) ([]audit.Record, error) {
	filter := bson.M{}
	if c.PrincipalID != "" {
		filter["principal_id"] = c.PrincipalID
	}
	if c.Operation != "" {
		filter["operation"] = c.Operation
	}
	if c.Allowed != nil {
		filter["allowed"] = *c.Allowed
	}
	created := bson.M{}
	if !c.Since.IsZero() {
		created["$gte"] = c.Since
	}
	if !c.Until.IsZero() {
		created["$lte"] = c.Until
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if c.Limit > 0 {
		opts.SetLimit(int64(c.Limit))
	}

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []recordDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]audit.Record, len(docs))
	for i, doc := range docs {
		out[i] = audit.Record{
			ID:          doc.ID,
			PrincipalID: doc.PrincipalID,
			Operation:   doc.Operation,
			Allowed:     doc.Allowed,
			Reason:      doc.Reason,
			Remaining:   doc.Remaining,
			CreatedAt:   doc.CreatedAt,
		}
	}
	return out, nil
}

func toRecordDoc(rec audit.Record) recordDoc {
	return recordDoc{
		ID:          rec.ID,
		PrincipalID: rec.PrincipalID,
		Operation:   rec.Operation,
		Allowed:     rec.Allowed,
		Reason:      rec.Reason,
		Remaining:   rec.Remaining,
		CreatedAt:   rec.CreatedAt,
	}
}

var _ audit.Storage = (*AuditStorage)(nil)
