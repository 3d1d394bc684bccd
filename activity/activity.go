package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"movment/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Channel carries every recorded activity as JSON for live consumers.
const Channel = "activity_events"

type ipKey struct{}

// WithIP attaches the client address recorded alongside activities.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// Collection is the subset of *mongo.Collection the recorder needs.
type Collection interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Recorder writes the user activity audit trail. Failures are logged and
// never surface to the caller.
type Recorder struct {
	coll   Collection
	pub    redis.Cmdable
	logger *zap.Logger
	now    func() time.Time
}

// NewRecorder builds a recorder. pub may be nil when Redis is disabled.
func NewRecorder(coll Collection, pub redis.Cmdable, logger *zap.Logger) *Recorder {
	return &Recorder{coll: coll, pub: pub, logger: logger, now: time.Now}
}

func (r *Recorder) Record(ctx context.Context, user primitive.ObjectID, action models.ActivityAction, entityType string, entityID *primitive.ObjectID) {
	ip, _ := ctx.Value(ipKey{}).(string)
	a := models.UserActivity{
		ID:         primitive.NewObjectID(),
		User:       user,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IP:         ip,
		CreatedAt:  r.now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		r.logger.Warn("record activity", zap.String("action", string(action)), zap.Error(err))
		return
	}
	if r.pub == nil {
		return
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := r.pub.Publish(ctx, Channel, string(payload)).Err(); err != nil {
		r.logger.Debug("publish activity", zap.Error(err))
	}
}

// Filter narrows the audit listing. Zero fields do not constrain.
type Filter struct {
	User   primitive.ObjectID
	Action models.ActivityAction
	Limit  int64
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if !f.User.IsZero() {
		q["user"] = f.User
	}
	if f.Action != "" {
		q["action"] = f.Action
	}
	return q
}

// List returns the newest matching activities first.
func (r *Recorder) List(ctx context.Context, f Filter) ([]models.UserActivity, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, fmt.Errorf("find activities: %w", err)
	}
	defer cursor.Close(ctx)
	out := []models.UserActivity{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return out, nil
}
