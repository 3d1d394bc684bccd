package db

import (
	"context"

	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Party restricts a conversation lookup to one participant. The zero value
// matches any conversation and is used by the admin read-only views.
type Party struct {
	User    primitive.ObjectID
	Manager primitive.ObjectID
}

func (p Party) filter() bson.M {
	f := bson.M{}
	if !p.User.IsZero() {
		f["user"] = p.User
	}
	if !p.Manager.IsZero() {
		f["manager"] = p.Manager
	}
	return f
}

type ConversationRepo struct {
	coll *mongo.Collection
}

func NewConversationRepo(s *Store) *ConversationRepo {
	return &ConversationRepo{coll: s.Conversations}
}

func (r *ConversationRepo) List(ctx context.Context, p Party) ([]models.ManagerConversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	return FindAll[models.ManagerConversation](ctx, r.coll, p.filter(), opts)
}

func (r *ConversationRepo) Find(ctx context.Context, id primitive.ObjectID, p Party) (*models.ManagerConversation, error) {
	f := p.filter()
	f["_id"] = id
	return FindOne[models.ManagerConversation](ctx, r.coll, f)
}

// Open returns the event's conversation for p, creating it from seed when
// none exists yet. The upsert keeps concurrent openers on one document.
func (r *ConversationRepo) Open(ctx context.Context, event primitive.ObjectID, p Party, seed models.ManagerConversation) (*models.ManagerConversation, error) {
	f := p.filter()
	f["event"] = event
	update := bson.M{"$setOnInsert": openFields(f, seed)}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var c models.ManagerConversation
	if err := r.coll.FindOneAndUpdate(ctx, f, update, opts).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindForEvent returns the event's conversation for p or lifecycle.ErrNotFound.
func (r *ConversationRepo) FindForEvent(ctx context.Context, event primitive.ObjectID, p Party) (*models.ManagerConversation, error) {
	f := p.filter()
	f["event"] = event
	return FindOne[models.ManagerConversation](ctx, r.coll, f)
}

// Append adds msg to a conversation p takes part in.
func (r *ConversationRepo) Append(ctx context.Context, id primitive.ObjectID, p Party, msg models.ConversationMessage) (*models.ManagerConversation, error) {
	f := p.filter()
	f["_id"] = id
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updatedAt": msg.At},
	}
	return UpdateOne[models.ManagerConversation](ctx, r.coll, f, update)
}

// openFields are the fields of a new conversation not already fixed by the
// upsert filter.
func openFields(filter bson.M, seed models.ManagerConversation) bson.M {
	doc := bson.M{
		"user":      seed.User,
		"manager":   seed.Manager,
		"messages":  []models.ConversationMessage{},
		"createdAt": seed.CreatedAt,
		"updatedAt": seed.CreatedAt,
	}
	for k := range filter {
		delete(doc, k)
	}
	return doc
}
