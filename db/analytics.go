package db

import (
	"context"
	"time"

	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Count is one bucket of a $group by a string key.
type Count struct {
	Key   string `json:"_id" bson:"_id"`
	Count int    `json:"count" bson:"count"`
}

// ManagerLoad is the per-manager event tally behind the performance views.
type ManagerLoad struct {
	Manager   primitive.ObjectID `bson:"_id"`
	Total     int                `bson:"total"`
	Completed int                `bson:"completed"`
}

// RatingStats averages feedback ratings.
type RatingStats struct {
	Avg   float64 `bson:"avg"`
	Count int     `bson:"count"`
}

// AnalyticsRepo runs the read-only aggregations of the admin dashboard.
type AnalyticsRepo struct {
	events   *mongo.Collection
	payments *mongo.Collection
	feedback *mongo.Collection
}

func NewAnalyticsRepo(s *Store) *AnalyticsRepo {
	return &AnalyticsRepo{events: s.Events, payments: s.Payments, feedback: s.Feedback}
}

// Revenue sums completed payments since from, net of refunds.
func (r *AnalyticsRepo) Revenue(ctx context.Context, from time.Time) (float64, error) {
	rows, err := Aggregate[struct {
		Total float64 `bson:"total"`
	}](ctx, r.payments, revenuePipeline(from))
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return rows[0].Total, nil
}

func revenuePipeline(from time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.PaymentCompleted, "createdAt": bson.M{"$gte": from}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": bson.M{"$subtract": bson.A{"$amount", bson.M{"$ifNull": bson.A{"$refundedAmount", 0}}}}},
		}}},
	}
}

// Bookings counts events created since from, split into live and cancelled.
func (r *AnalyticsRepo) Bookings(ctx context.Context, from time.Time) (live, cancelled int64, err error) {
	live, err = r.events.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": from}, "status": bson.M{"$ne": models.StatusCancelled}})
	if err != nil {
		return 0, 0, err
	}
	cancelled, err = r.events.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": from}, "status": models.StatusCancelled})
	return live, cancelled, err
}

func (r *AnalyticsRepo) Ratings(ctx context.Context, from time.Time) (RatingStats, error) {
	rows, err := Aggregate[RatingStats](ctx, r.feedback, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": from}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "avg": bson.M{"$avg": "$rating"}, "count": bson.M{"$sum": 1}}}},
	})
	if err != nil || len(rows) == 0 {
		return RatingStats{}, err
	}
	return rows[0], nil
}

func (r *AnalyticsRepo) EventsByStatus(ctx context.Context) ([]Count, error) {
	return Aggregate[Count](ctx, r.events, groupPipeline(nil, "$status"))
}

// EventsByType ignores cancelled bookings.
func (r *AnalyticsRepo) EventsByType(ctx context.Context) ([]Count, error) {
	return Aggregate[Count](ctx, r.events, groupPipeline(notCancelled(), "$type"))
}

// BusiestDates returns the days with the most live bookings.
func (r *AnalyticsRepo) BusiestDates(ctx context.Context, limit int) ([]Count, error) {
	p := groupPipeline(notCancelled(), bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$scheduledAt"}})
	p = append(p,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$limit", Value: limit}})
	return Aggregate[Count](ctx, r.events, p)
}

func (r *AnalyticsRepo) ManagerLoads(ctx context.Context) ([]ManagerLoad, error) {
	return Aggregate[ManagerLoad](ctx, r.events, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"assignedManager": bson.M{"$ne": nil}}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$assignedManager",
			"total":     bson.M{"$sum": 1},
			"completed": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", models.StatusCompleted}}, 1, 0}}},
		}}},
	})
}

// ManagerRatings averages all feedback per manager.
func (r *AnalyticsRepo) ManagerRatings(ctx context.Context) ([]ManagerRating, error) {
	return Aggregate[ManagerRating](ctx, r.feedback, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$manager", "avgRating": bson.M{"$avg": "$rating"}, "count": bson.M{"$sum": 1}}}},
	})
}

func notCancelled() bson.M {
	return bson.M{"status": bson.M{"$ne": models.StatusCancelled}}
}

func groupPipeline(match bson.M, key any) mongo.Pipeline {
	p := mongo.Pipeline{}
	if match != nil {
		p = append(p, bson.D{{Key: "$match", Value: match}})
	}
	return append(p, bson.D{{Key: "$group", Value: bson.M{"_id": key, "count": bson.M{"$sum": 1}}}})
}
