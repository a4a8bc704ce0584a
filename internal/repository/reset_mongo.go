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

const resetTokenCollection = "reset_tokens"

type resetTokenMongoRepository struct {
	db *mongo.Database
}

// NewResetTokenMongoRepository creates the MongoDB repository for password
// reset tokens. Expired records are reaped by a TTL index, so
// DeleteExpiredTokens is only a safety net.
func NewResetTokenMongoRepository(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
) ResetTokenRepository {
	collection := db.Collection(resetTokenCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "jti", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "identity_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create reset token indexes")
	}

	return &resetTokenMongoRepository{db: db}
}

func (r *resetTokenMongoRepository) CreateToken(ctx context.Context, token *model.ResetToken) error {
	token.CreatedAt = time.Now()
	token.Used = false

	_, err := r.db.Collection(resetTokenCollection).InsertOne(ctx, token)
	return err
}

func (r *resetTokenMongoRepository) GetTokenByJTI(ctx context.Context, jti string) (*model.ResetToken, error) {
	var token model.ResetToken
	err := r.db.Collection(resetTokenCollection).FindOne(ctx, bson.M{"jti": jti}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &token, nil
}

func (r *resetTokenMongoRepository) MarkTokenAsUsed(ctx context.Context, jti string) error {
	_, err := r.db.Collection(resetTokenCollection).UpdateOne(
		ctx,
		bson.M{"jti": jti},
		bson.M{"$set": bson.M{"used": true}},
	)
	return err
}

func (r *resetTokenMongoRepository) InvalidateForIdentity(ctx context.Context, identityID string) error {
	_, err := r.db.Collection(resetTokenCollection).UpdateMany(
		ctx,
		bson.M{"identity_id": identityID, "used": false},
		bson.M{"$set": bson.M{"used": true}},
	)
	return err
}

func (r *resetTokenMongoRepository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	result, err := r.db.Collection(resetTokenCollection).DeleteMany(
		ctx,
		bson.M{"expires_at": bson.M{"$lt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}
