package db

import (
	"context"
	"errors"

	"movment/lifecycle"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateCode is returned when a promotion code is already taken.
var ErrDuplicateCode = errors.New("promotion code exists")

// ResourceRepo keeps each manager's equipment inventory. Every operation is
// scoped to the owning manager.
type ResourceRepo struct {
	coll *mongo.Collection
}

func NewResourceRepo(s *Store) *ResourceRepo {
	return &ResourceRepo{coll: s.Resources}
}

func (r *ResourceRepo) List(ctx context.Context, manager primitive.ObjectID) ([]models.Resource, error) {
	return FindAll[models.Resource](ctx, r.coll, bson.M{"manager": manager}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *ResourceRepo) Insert(ctx context.Context, res *models.Resource) error {
	if res.ID.IsZero() {
		res.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, res)
	return err
}

func (r *ResourceRepo) Update(ctx context.Context, id, manager primitive.ObjectID, set bson.M) (*models.Resource, error) {
	return UpdateOne[models.Resource](ctx, r.coll, bson.M{"_id": id, "manager": manager}, bson.M{"$set": set})
}

func (r *ResourceRepo) Delete(ctx context.Context, id, manager primitive.ObjectID) error {
	return deleteOne(ctx, r.coll, bson.M{"_id": id, "manager": manager})
}

type PromotionRepo struct {
	coll *mongo.Collection
}

func NewPromotionRepo(s *Store) *PromotionRepo {
	return &PromotionRepo{coll: s.Promotions}
}

func (r *PromotionRepo) List(ctx context.Context) ([]models.Promotion, error) {
	return FindAll[models.Promotion](ctx, r.coll, bson.M{}, Newest())
}

func (r *PromotionRepo) Insert(ctx context.Context, p *models.Promotion) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, p)
	if IsDuplicateKey(err) {
		return ErrDuplicateCode
	}
	return err
}

func (r *PromotionRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Promotion, error) {
	return UpdateOne[models.Promotion](ctx, r.coll, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *PromotionRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteOne(ctx, r.coll, bson.M{"_id": id})
}

func deleteOne(ctx context.Context, coll *mongo.Collection, filter bson.M) error {
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}
