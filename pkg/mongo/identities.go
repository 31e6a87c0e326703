package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/gatekit/pkg/principal"
)

const identitiesCollection = "identities"

type identityDoc struct {
	ID          string `bson:"_id"`
	Name        string `bson:"name,omitempty"`
	Role        string `bson:"role"`
	SecretHash  []byte `bson:"secret_hash,omitempty"`
	Deactivated bool   `bson:"deactivated"`
}

// IdentityStore implements principal.IdentityWriter over the identities
// collection.
type IdentityStore struct {
	col *mongo.Collection
}

// NewIdentityStore creates an identity store in the given database.
func NewIdentityStore(db *mongo.Database) *IdentityStore {
	return &IdentityStore{col: db.Collection(identitiesCollection)}
}

// Identity loads an identity by ID.
func (s *IdentityStore) Identity(ctx context.Context, id string) (principal.Identity, error) {
	var doc identityDoc
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return principal.Identity{}, principal.ErrIdentityNotFound
		}
		return principal.Identity{}, errors.Join(principal.ErrStoreUnavailable, err)
	}

	return principal.Identity{
		ID:          doc.ID,
		Name:        doc.Name,
		Role:        principal.Role(doc.Role),
		SecretHash:  doc.SecretHash,
		Deactivated: doc.Deactivated,
	}, nil
}

// CreateIdentity stores a new identity, rejecting duplicate IDs.
func (s *IdentityStore) CreateIdentity(ctx context.Context, ident principal.Identity) error {
	_, err := s.col.InsertOne(ctx, identityDoc{
		ID:          ident.ID,
		Name:        ident.Name,
		Role:        string(ident.Role),
		SecretHash:  ident.SecretHash,
		Deactivated: ident.Deactivated,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return principal.ErrIdentityExists
		}
		return errors.Join(principal.ErrStoreUnavailable, err)
	}
	return nil
}

// SetDeactivated flips the active state of an identity.
func (s *IdentityStore) SetDeactivated(ctx context.Context, id string, deactivated bool) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"deactivated": deactivated}},
	)
	if err != nil {
		return errors.Join(principal.ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return principal.ErrIdentityNotFound
	}
	return nil
}

var _ principal.IdentityWriter = (*IdentityStore)(nil)
