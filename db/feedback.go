package db

import (
	"context"
	"errors"
	"time"

	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrAlreadySubmitted is returned when a user reviews or surveys the same event twice.
var ErrAlreadySubmitted = errors.New("already submitted")

// ManagerRating is the per-manager average served by the ratings aggregate.
type ManagerRating struct {
	Manager   primitive.ObjectID `json:"manager" bson:"_id"`
	AvgRating float64            `json:"avgRating" bson:"avgRating"`
	Count     int                `json:"count" bson:"count"`
}

type FeedbackRepo struct {
	coll    *mongo.Collection
	surveys *mongo.Collection
}

func NewFeedbackRepo(s *Store) *FeedbackRepo {
	return &FeedbackRepo{coll: s.Feedback, surveys: s.Surveys}
}

func (r *FeedbackRepo) Insert(ctx context.Context, f *models.Feedback) error {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, f)
	if IsDuplicateKey(err) {
		return ErrAlreadySubmitted
	}
	return err
}

func (r *FeedbackRepo) Exists(ctx context.Context, event, user primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"event": event, "user": user})
	return n > 0, err
}

func (r *FeedbackRepo) ListForManager(ctx context.Context, manager primitive.ObjectID) ([]models.Feedback, error) {
	return FindAll[models.Feedback](ctx, r.coll, bson.M{"manager": manager}, Newest())
}

// Reply sets the manager's answer on feedback addressed to them.
func (r *FeedbackRepo) Reply(ctx context.Context, id, manager primitive.ObjectID, reply string, at time.Time) (*models.Feedback, error) {
	update := bson.M{"$set": bson.M{"managerReply": reply, "managerRepliedAt": at, "updatedAt": at}}
	return UpdateOne[models.Feedback](ctx, r.coll, bson.M{"_id": id, "manager": manager}, update)
}

// Ratings returns the best rated managers first.
func (r *FeedbackRepo) Ratings(ctx context.Context, limit int) ([]ManagerRating, error) {
	return Aggregate[ManagerRating](ctx, r.coll, ratingsPipeline(limit))
}

func ratingsPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$manager", "avgRating": bson.M{"$avg": "$rating"}, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "avgRating", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}
}

func (r *FeedbackRepo) InsertSurvey(ctx context.Context, s *models.Survey) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	_, err := r.surveys.InsertOne(ctx, s)
	if IsDuplicateKey(err) {
		return ErrAlreadySubmitted
	}
	return err
}

func (r *FeedbackRepo) SurveyExists(ctx context.Context, event, user primitive.ObjectID) (bool, error) {
	n, err := r.surveys.CountDocuments(ctx, bson.M{"event": event, "user": user})
	return n > 0, err
}
