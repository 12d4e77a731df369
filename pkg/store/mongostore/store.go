package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/fedauth/pkg/identity"
)

// Store is an identity.Store on a MongoDB collection.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ identity.Store = (*Store)(nil)

// New returns a store on coll. Call EnsureIndexes once before serving
// traffic; uniqueness is enforced by the indexes.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll, now: time.Now}
}

// indexModels returns the unique indexes backing the identity.Store
// contract: one on the local email and one per provider id. The indexes are
// sparse, so users without the field do not collide on null.
func indexModels() []mongo.IndexModel {
	models := []mongo.IndexModel{{
		Keys:    bson.D{{Key: "local.email", Value: 1}},
		Options: options.Index().SetName("local_email_unique").SetUnique(true).SetSparse(true),
	}}
	for _, p := range identity.FederatedProviders() {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: providerField(p), Value: 1}},
			Options: options.Index().SetName(p + "_id_unique").SetUnique(true).SetSparse(true),
		})
	}
	return models
}

// EnsureIndexes creates the unique indexes. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.coll.Indexes().CreateMany(ctx, indexModels()); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func providerField(provider string) string {
	return "providers." + provider + ".id"
}

func (s *Store) FindByID(ctx context.Context, id string) (*identity.User, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) FindByProvider(ctx context.Context, provider, providerID string) (*identity.User, error) {
	// provider becomes part of a field path; only known names are queried
	if !identity.IsFederated(provider) {
		return nil, identity.ErrNotFound
	}
	return s.findOne(ctx, bson.D{{Key: providerField(provider), Value: providerID}})
}

func (s *Store) FindByLocalEmail(ctx context.Context, email string) (*identity.User, error) {
	return s.findOne(ctx, bson.D{{Key: "local.email", Value: email}})
}

func (s *Store) findOne(ctx context.Context, filter bson.D) (*identity.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, identity.ErrNotFound
		}
		return nil, errors.Join(identity.ErrStorage, err)
	}
	return doc.toUser(), nil
}

func (s *Store) Create(ctx context.Context, u *identity.User) error {
	now := s.now().UTC().Truncate(time.Millisecond)
	id := uuid.NewString()

	doc := toDocument(u)
	doc.ID = id
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return mapWriteError(err)
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Providers == nil {
		u.Providers = make(map[string]identity.ProviderLink)
	}
	return nil
}

// Save rewrites the credentials of an existing user. created_at is left
// untouched.
func (s *Store) Save(ctx context.Context, u *identity.User) error {
	now := s.now().UTC().Truncate(time.Millisecond)
	doc := toDocument(u)

	set := bson.D{
		{Key: "providers", Value: doc.Providers},
		{Key: "updated_at", Value: now},
	}
	update := bson.D{}
	if doc.Local != nil {
		set = append(set, bson.E{Key: "local", Value: doc.Local})
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "local", Value: ""}}})
	}
	update = append(update, bson.E{Key: "$set", Value: set})

	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: u.ID}}, update)
	if err != nil {
		return mapWriteError(err)
	}
	if res.MatchedCount == 0 {
		return identity.ErrNotFound
	}
	u.UpdatedAt = now
	return nil
}

// Delete removes a user. It is not part of identity.Store and exists for
// administrative tooling.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Join(identity.ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return errors.Join(identity.ErrDuplicate, err)
	}
	return errors.Join(identity.ErrStorage, err)
}
