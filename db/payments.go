package db

import (
	"context"
	"time"

	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type PaymentRepo struct {
	coll *mongo.Collection
}

func NewPaymentRepo(s *Store) *PaymentRepo {
	return &PaymentRepo{coll: s.Payments}
}

func (r *PaymentRepo) Insert(ctx context.Context, p *models.Payment) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, p)
	return err
}

func (r *PaymentRepo) ListForUser(ctx context.Context, user primitive.ObjectID) ([]models.Payment, error) {
	return FindAll[models.Payment](ctx, r.coll, bson.M{"user": user}, Newest())
}

func (r *PaymentRepo) ListForEvent(ctx context.Context, event primitive.ObjectID) ([]models.Payment, error) {
	return FindAll[models.Payment](ctx, r.coll, bson.M{"event": event}, Newest())
}

type RefundRepo struct {
	coll *mongo.Collection
}

func NewRefundRepo(s *Store) *RefundRepo {
	return &RefundRepo{coll: s.Refunds}
}

func (r *RefundRepo) Insert(ctx context.Context, rf *models.Refund) error {
	if rf.ID.IsZero() {
		rf.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, rf)
	return err
}

func (r *RefundRepo) List(ctx context.Context, status models.RefundStatus) ([]models.Refund, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return FindAll[models.Refund](ctx, r.coll, filter, Newest())
}

// Decide records an admin decision. processedBy is stamped only for final states.
func (r *RefundRepo) Decide(ctx context.Context, id primitive.ObjectID, status models.RefundStatus, note string, by primitive.ObjectID, at time.Time) (*models.Refund, error) {
	return UpdateOne[models.Refund](ctx, r.coll, bson.M{"_id": id}, refundUpdate(status, note, by, at))
}

func refundUpdate(status models.RefundStatus, note string, by primitive.ObjectID, at time.Time) bson.M {
	set := bson.M{"status": status, "updatedAt": at}
	if note != "" {
		set["adminNote"] = note
	}
	if status == models.RefundProcessed || status == models.RefundRejected {
		set["processedBy"] = by
		set["processedAt"] = at
	}
	return bson.M{"$set": set}
}
