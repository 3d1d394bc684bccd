package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movment/lifecycle"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepo struct {
	coll *mongo.Collection
}

func NewNotificationRepo(s *Store) *NotificationRepo {
	return &NotificationRepo{coll: s.Notifications}
}

func (r *NotificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, n)
	return err
}

// InsertMany stores a fan-out batch in one round trip.
func (r *NotificationRepo) InsertMany(ctx context.Context, batch []models.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	docs := make([]any, len(batch))
	for i := range batch {
		if batch[i].ID.IsZero() {
			batch[i].ID = primitive.NewObjectID()
		}
		docs[i] = batch[i]
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return err
}

// ListForUser returns the newest notifications first.
func (r *NotificationRepo) ListForUser(ctx context.Context, user primitive.ObjectID, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{"user": user}, opts)
	if err != nil {
		return nil, fmt.Errorf("find notifications: %w", err)
	}
	defer cursor.Close(ctx)
	out := []models.Notification{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return out, nil
}

// MarkRead flags one notification owned by user.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, user primitive.ObjectID, at time.Time) (*models.Notification, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var n models.Notification
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user": user},
		bson.M{"$set": bson.M{"read": true, "updatedAt": at}},
		opts).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, user primitive.ObjectID, at time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"user": user, "read": false},
		bson.M{"$set": bson.M{"read": true, "updatedAt": at}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
