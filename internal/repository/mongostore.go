package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/identity-broker/internal/model"
)

const identityCollection = "identities"

var caseInsensitive = options.Collation{Locale: "en", Strength: 2}

type identityMongoRepository struct {
	db  *mongo.Database
	now func() time.Time
}

// NewIdentityMongoRepository creates the MongoDB-backed identity store and
// ensures its indexes. The unique partial indexes enforce the store
// invariants: one credentialed identity per email, one identity per
// (subject id, issuer id) pair.
func NewIdentityMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) IdentityRepository {
	collection := db.Collection(identityCollection)

	indexes := []mongo.IndexModel{
		{
			// The collation must match the lookups, or the uniqueness
			// guarantee would not cover case-folded duplicates.
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetCollation(&caseInsensitive).
				SetPartialFilterExpression(bson.M{"verifier": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "subject_id", Value: 1}, {Key: "issuer_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"subject_id": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "refresh_tokens.token", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create identity indexes")
	}

	return &identityMongoRepository{db: db, now: time.Now}
}

func (r *identityMongoRepository) GetByID(ctx context.Context, id string) (*model.Identity, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *identityMongoRepository) GetLocalByEmail(ctx context.Context, email string) (*model.Identity, error) {
	filter := bson.M{
		"email":    email,
		"verifier": bson.M{"$exists": true, "$ne": ""},
	}

	return r.findOne(ctx, filter, options.FindOne().SetCollation(&caseInsensitive))
}

func (r *identityMongoRepository) GetByFederatedSubject(
	ctx context.Context,
	subjectID, issuerID string,
) (*model.Identity, error) {
	filter := bson.M{
		"subject_id": subjectID,
		"issuer_id":  issuerID,
	}

	return r.findOne(ctx, filter, nil)
}

func (r *identityMongoRepository) GetByRefreshToken(ctx context.Context, token string) (*model.Identity, error) {
	filter := bson.M{
		"refresh_tokens": bson.M{
			"$elemMatch": bson.M{
				"token":           token,
				"absolute_expiry": bson.M{"$gt": r.now()},
			},
		},
	}

	return r.findOne(ctx, filter, nil)
}

func (r *identityMongoRepository) ListIdentities(ctx context.Context) ([]*model.Identity, error) {
	cursor, err := r.db.Collection(identityCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var identities []*model.Identity
	for cursor.Next(ctx) {
		var identity model.Identity
		if err := cursor.Decode(&identity); err != nil {
			return nil, err
		}
		identities = append(identities, &identity)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return identities, nil
}

func (r *identityMongoRepository) UpsertIdentity(ctx context.Context, identity *model.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	replacement := *identity
	replacement.Version = identity.Version + 1

	if identity.Version == 0 {
		_, err := r.db.Collection(identityCollection).InsertOne(ctx, &replacement)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return ErrStaleStore
			}
			return err
		}
		identity.Version = replacement.Version
		return nil
	}

	// Replace only when the stored version still matches the one this write
	// was computed from.
	result, err := r.db.Collection(identityCollection).ReplaceOne(
		ctx,
		bson.M{"_id": identity.ID, "version": identity.Version},
		&replacement,
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrStaleStore
	}

	identity.Version = replacement.Version
	return nil
}

func (r *identityMongoRepository) DeleteIdentity(ctx context.Context, email string) error {
	_, err := r.db.Collection(identityCollection).DeleteMany(
		ctx,
		bson.M{"email": email},
		options.DeleteMany().SetCollation(&caseInsensitive),
	)
	return err
}

func (r *identityMongoRepository) findOne(
	ctx context.Context,
	filter bson.M,
	opts *options.FindOneOptionsBuilder,
) (*model.Identity, error) {
	var result *mongo.SingleResult
	if opts != nil {
		result = r.db.Collection(identityCollection).FindOne(ctx, filter, opts)
	} else {
		result = r.db.Collection(identityCollection).FindOne(ctx, filter)
	}

	var identity model.Identity
	if err := result.Decode(&identity); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &identity, nil
}
