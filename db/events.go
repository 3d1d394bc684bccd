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

var activeStatuses = []models.EventStatus{models.StatusAccepted, models.StatusInProgress}

// EventRepo persists events. Every mutation is a single conditional
// FindOneAndUpdate so concurrent writers are serialised by the server.
type EventRepo struct {
	coll *mongo.Collection
}

func NewEventRepo(s *Store) *EventRepo {
	return &EventRepo{coll: s.Events}
}

func (r *EventRepo) Insert(ctx context.Context, ev *models.Event) error {
	if ev.ID.IsZero() {
		ev.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, ev)
	return err
}

func (r *EventRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var ev models.Event
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *EventRepo) UpdateIf(ctx context.Context, id primitive.ObjectID, cond lifecycle.Cond, change lifecycle.Change) (*models.Event, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ev models.Event
	err := r.coll.FindOneAndUpdate(ctx, condFilter(id, cond), changeUpdate(change), opts).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lifecycle.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *EventRepo) DueForAutoAssign(ctx context.Context, now time.Time) ([]models.Event, error) {
	return r.find(ctx, dueForAutoAssignFilter(now), options.Find().SetSort(bson.D{{Key: "autoAssignDeadline", Value: 1}}))
}

func (r *EventRepo) UpcomingUnreminded(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	return r.find(ctx, upcomingUnremindedFilter(from, to), options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}}))
}

// ClaimReminder stamps reminderSentAt if it is still unset. Only one caller
// can ever observe true for a given event.
func (r *EventRepo) ClaimReminder(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, reminderClaimFilter(id), bson.M{"$set": bson.M{"reminderSentAt": at}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *EventRepo) ReleaseReminder(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"reminderSentAt": ""}})
	return err
}

func (r *EventRepo) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Event, error) {
	return r.find(ctx, bson.M{"bookedBy": owner}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *EventRepo) ListPending(ctx context.Context, city string) ([]models.Event, error) {
	filter := bson.M{"status": models.StatusPending}
	if city != "" {
		filter["location.city"] = city
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}}))
}

func (r *EventRepo) ListAssigned(ctx context.Context, manager primitive.ObjectID) ([]models.Event, error) {
	filter := bson.M{"assignedManager": manager, "status": bson.M{"$in": activeStatuses}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduledAt", Value: 1}}))
}

func (r *EventRepo) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Event, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

func condFilter(id primitive.ObjectID, cond lifecycle.Cond) bson.M {
	filter := bson.M{"_id": id}
	switch len(cond.Statuses) {
	case 0:
	case 1:
		filter["status"] = cond.Statuses[0]
	default:
		filter["status"] = bson.M{"$in": cond.Statuses}
	}
	if cond.BookedBy != nil {
		filter["bookedBy"] = *cond.BookedBy
	}
	return filter
}

func changeUpdate(change lifecycle.Change) bson.M {
	set := bson.M{"updatedAt": change.At}
	if change.Status != "" {
		set["status"] = change.Status
	}
	if change.AssignedManager != nil {
		set["assignedManager"] = *change.AssignedManager
	}
	if change.ScheduledAt != nil {
		set["scheduledAt"] = *change.ScheduledAt
	}
	if change.SetTeam {
		team := change.AssignedTeam
		if team == nil {
			team = []string{}
		}
		set["assignedTeam"] = team
	}
	update := bson.M{"$set": set}
	if change.History != nil {
		update["$push"] = bson.M{"statusHistory": *change.History}
	}
	return update
}

func dueForAutoAssignFilter(now time.Time) bson.M {
	return bson.M{
		"status":             models.StatusPending,
		"autoAssignDeadline": bson.M{"$lte": now},
	}
}

func upcomingUnremindedFilter(from, to time.Time) bson.M {
	return bson.M{
		"status":         bson.M{"$in": activeStatuses},
		"scheduledAt":    bson.M{"$gte": from, "$lte": to},
		"reminderSentAt": nil,
	}
}

// reminderClaimFilter matches only while the guard is null or missing.
func reminderClaimFilter(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "reminderSentAt": nil}
}
