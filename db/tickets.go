package db

import (
	"context"
	"time"

	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type TicketRepo struct {
	coll *mongo.Collection
}

func NewTicketRepo(s *Store) *TicketRepo {
	return &TicketRepo{coll: s.SupportTickets}
}

func (r *TicketRepo) Insert(ctx context.Context, t *models.SupportTicket) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, t)
	return err
}

func (r *TicketRepo) ListForUser(ctx context.Context, user primitive.ObjectID) ([]models.SupportTicket, error) {
	return FindAll[models.SupportTicket](ctx, r.coll, bson.M{"user": user}, Newest())
}

// List filters by category and status; empty values match everything.
func (r *TicketRepo) List(ctx context.Context, category string, status models.TicketStatus) ([]models.SupportTicket, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	if status != "" {
		filter["status"] = status
	}
	return FindAll[models.SupportTicket](ctx, r.coll, filter, Newest())
}

// Find loads a ticket. A non-zero owner restricts the lookup to that user's tickets.
func (r *TicketRepo) Find(ctx context.Context, id, owner primitive.ObjectID) (*models.SupportTicket, error) {
	return FindOne[models.SupportTicket](ctx, r.coll, ticketFilter(id, owner))
}

// Update appends reply when set and changes status when non-empty, in one write.
func (r *TicketRepo) Update(ctx context.Context, id, owner primitive.ObjectID, status models.TicketStatus, reply *models.TicketReply, at time.Time) (*models.SupportTicket, error) {
	return UpdateOne[models.SupportTicket](ctx, r.coll, ticketFilter(id, owner), ticketUpdate(status, reply, at))
}

func ticketFilter(id, owner primitive.ObjectID) bson.M {
	f := bson.M{"_id": id}
	if !owner.IsZero() {
		f["user"] = owner
	}
	return f
}

func ticketUpdate(status models.TicketStatus, reply *models.TicketReply, at time.Time) bson.M {
	set := bson.M{"updatedAt": at}
	if status != "" {
		set["status"] = status
	}
	update := bson.M{"$set": set}
	if reply != nil {
		update["$push"] = bson.M{"replies": *reply}
	}
	return update
}
