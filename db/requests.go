package db

import (
	"context"
	"errors"
	"time"

	"movment/lifecycle"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrRequestPending is returned when the user already has an open request.
var ErrRequestPending = errors.New("manager request pending")

// RequestRepo stores applications from users who want the manager role.
type RequestRepo struct {
	coll *mongo.Collection
}

func NewRequestRepo(s *Store) *RequestRepo {
	return &RequestRepo{coll: s.ManagerRequests}
}

func (r *RequestRepo) Insert(ctx context.Context, req *models.ManagerRequest) error {
	if req.ID.IsZero() {
		req.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, req)
	if IsDuplicateKey(err) {
		return ErrRequestPending
	}
	return err
}

// Pending returns the user's open request or lifecycle.ErrNotFound.
func (r *RequestRepo) Pending(ctx context.Context, user primitive.ObjectID) (*models.ManagerRequest, error) {
	return FindOne[models.ManagerRequest](ctx, r.coll, bson.M{"user": user, "status": models.RequestPending})
}

// Latest returns the user's most recent request or lifecycle.ErrNotFound.
func (r *RequestRepo) Latest(ctx context.Context, user primitive.ObjectID) (*models.ManagerRequest, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return FindOne[models.ManagerRequest](ctx, r.coll, bson.M{"user": user}, opts)
}

func (r *RequestRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ManagerRequest, error) {
	return FindOne[models.ManagerRequest](ctx, r.coll, bson.M{"_id": id})
}

func (r *RequestRepo) List(ctx context.Context, status models.ManagerRequestStatus) ([]models.ManagerRequest, error) {
	return FindAll[models.ManagerRequest](ctx, r.coll, bson.M{"status": status}, Newest())
}

// Resolve closes a pending request. It returns lifecycle.ErrConflict when the
// request was already processed.
func (r *RequestRepo) Resolve(ctx context.Context, id primitive.ObjectID, status models.ManagerRequestStatus, by primitive.ObjectID, at time.Time) (*models.ManagerRequest, error) {
	update := bson.M{"$set": bson.M{"status": status, "processedBy": by, "processedAt": at, "updatedAt": at}}
	req, err := UpdateOne[models.ManagerRequest](ctx, r.coll, bson.M{"_id": id, "status": models.RequestPending}, update)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, lifecycle.ErrConflict
	}
	return req, err
}
