package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Store owns the Mongo client and one collection per entity.
type Store struct {
	Client *mongo.Client

	Users           *mongo.Collection
	Events          *mongo.Collection
	Notifications   *mongo.Collection
	Conversations   *mongo.Collection
	SupportTickets  *mongo.Collection
	Payments        *mongo.Collection
	Refunds         *mongo.Collection
	Promotions      *mongo.Collection
	Resources       *mongo.Collection
	Feedback        *mongo.Collection
	Surveys         *mongo.Collection
	ManagerRequests *mongo.Collection
	Activities      *mongo.Collection
	Idempotency     *mongo.Collection

	logger *zap.Logger
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*Store, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database = orDefault(database, "movment")
	logger.Info("mongo connected", zap.String("database", database))
	return newStore(client, client.Database(database), logger), nil
}

func newStore(client *mongo.Client, d *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		Client:          client,
		Users:           d.Collection("users"),
		Events:          d.Collection("events"),
		Notifications:   d.Collection("notifications"),
		Conversations:   d.Collection("managerconversations"),
		SupportTickets:  d.Collection("supporttickets"),
		Payments:        d.Collection("payments"),
		Refunds:         d.Collection("refunds"),
		Promotions:      d.Collection("promotions"),
		Resources:       d.Collection("resources"),
		Feedback:        d.Collection("feedbacks"),
		Surveys:         d.Collection("surveys"),
		ManagerRequests: d.Collection("managerrequests"),
		Activities:      d.Collection("useractivities"),
		Idempotency:     d.Collection("idempotency"),
		logger:          logger,
	}
}

// EnsureIndexes creates the unique and query indexes the services rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		s.Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "approved", Value: 1}, {Key: "location.city", Value: 1}}},
		},
		s.Events: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "autoAssignDeadline", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduledAt", Value: 1}}},
			{Keys: bson.D{{Key: "bookedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "assignedManager", Value: 1}, {Key: "scheduledAt", Value: 1}}},
		},
		s.Notifications: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		s.Feedback: {
			{Keys: bson.D{{Key: "event", Value: 1}, {Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "manager", Value: 1}}},
		},
		s.Surveys: {
			{Keys: bson.D{{Key: "event", Value: 1}, {Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.Promotions: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.Conversations: {
			{Keys: bson.D{{Key: "event", Value: 1}, {Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "manager", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		s.ManagerRequests: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "status", Value: 1}}},
			{
				Keys:    bson.D{{Key: "user", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"status": "pending"}).SetName("one_pending_per_user"),
			},
		},
		s.Activities: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		s.Idempotency: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_user_key")},
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at")},
		},
	}
	for coll, models := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Ping reports whether the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// IsDuplicateKey reports whether err is a unique index violation (code 11000).
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsUnavailable reports whether err means the database could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
