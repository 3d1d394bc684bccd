package db

import (
	"context"
	"errors"
	"fmt"

	"movment/lifecycle"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindAll decodes every match into a non-nil slice.
func FindAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

// FindOne returns lifecycle.ErrNotFound when nothing matches.
func FindOne[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOneOptions) (*T, error) {
	var v T
	err := coll.FindOne(ctx, filter, opts...).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find one %s: %w", coll.Name(), err)
	}
	return &v, nil
}

// UpdateOne applies update to the first match and returns the document after
// the change, or lifecycle.ErrNotFound when nothing matched.
func UpdateOne[T any](ctx context.Context, coll *mongo.Collection, filter, update any) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var v T
	err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", coll.Name(), err)
	}
	return &v, nil
}

// Aggregate runs pipeline and decodes all results.
func Aggregate[T any](ctx context.Context, coll *mongo.Collection, pipeline any) ([]T, error) {
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s aggregate: %w", coll.Name(), err)
	}
	return out, nil
}

// Newest sorts by createdAt descending.
func Newest() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}
