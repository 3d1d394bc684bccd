package db

import (
	"context"
	"fmt"

	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type IdempotencyRepo struct {
	coll *mongo.Collection
}

func NewIdempotencyRepo(s *Store) *IdempotencyRepo {
	return &IdempotencyRepo{coll: s.Idempotency}
}

// Reserve claims rec.Key for rec.User. When that user already holds the key it
// returns the stored record and false. Keys are scoped per user.
func (r *IdempotencyRepo) Reserve(ctx context.Context, rec *models.IdempotencyRecord) (*models.IdempotencyRecord, bool, error) {
	_, err := r.coll.InsertOne(ctx, rec)
	if err == nil {
		return rec, true, nil
	}
	if !IsDuplicateKey(err) {
		return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	existing, err := FindOne[models.IdempotencyRecord](ctx, r.coll, keyFilter(rec.User, rec.Key))
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Complete stores the response captured for the user's key.
func (r *IdempotencyRepo) Complete(ctx context.Context, user primitive.ObjectID, key string, status int, body []byte) error {
	_, err := r.coll.UpdateOne(ctx, keyFilter(user, key), bson.M{"$set": bson.M{"status": status, "body": body}})
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release drops a reservation whose request failed so the client may retry.
func (r *IdempotencyRepo) Release(ctx context.Context, user primitive.ObjectID, key string) error {
	filter := keyFilter(user, key)
	filter["status"] = bson.M{"$exists": false}
	_, err := r.coll.DeleteOne(ctx, filter)
	return err
}

func keyFilter(user primitive.ObjectID, key string) bson.M {
	return bson.M{"user": user, "key": key}
}
