package db

import (
	"context"
	"regexp"
	"time"

	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventQuery describes the manager and admin event views. Zero fields do not
// constrain the result.
type EventQuery struct {
	Manager   primitive.ObjectID
	Statuses  []models.EventStatus
	NotStatus models.EventStatus
	Type      string
	// City matches case-insensitively anywhere in location.city.
	City   string
	From   time.Time
	To     time.Time
	Newest bool
}

func (q EventQuery) filter() bson.M {
	f := bson.M{}
	if !q.Manager.IsZero() {
		f["assignedManager"] = q.Manager
	}
	switch {
	case len(q.Statuses) == 1:
		f["status"] = q.Statuses[0]
	case len(q.Statuses) > 1:
		f["status"] = bson.M{"$in": q.Statuses}
	case q.NotStatus != "":
		f["status"] = bson.M{"$ne": q.NotStatus}
	}
	if q.Type != "" {
		f["type"] = q.Type
	}
	if q.City != "" {
		f["location.city"] = primitive.Regex{Pattern: regexp.QuoteMeta(q.City), Options: "i"}
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		window := bson.M{}
		if !q.From.IsZero() {
			window["$gte"] = q.From
		}
		if !q.To.IsZero() {
			window["$lte"] = q.To
		}
		f["scheduledAt"] = window
	}
	return f
}

func (q EventQuery) sort() bson.D {
	if q.Newest {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	return bson.D{{Key: "scheduledAt", Value: 1}}
}

// Query lists events matching q, by schedule unless q.Newest is set.
func (r *EventRepo) Query(ctx context.Context, q EventQuery) ([]models.Event, error) {
	return r.find(ctx, q.filter(), options.Find().SetSort(q.sort()))
}
