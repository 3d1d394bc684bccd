package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"movment/lifecycle"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrDuplicateEmail is returned by Insert when the e-mail is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{coll: s.Users}
}

func (r *UserRepo) Insert(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	_, err := r.coll.InsertOne(ctx, u)
	if IsDuplicateKey(err) {
		return ErrDuplicateEmail
	}
	return err
}

// FindByID returns lifecycle.ErrNotFound when the user does not exist.
func (r *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"phone": strings.TrimSpace(phone)})
}

// FindApprovedManagerInCity returns the first approved manager whose profile
// city matches, or nil when there is none.
func (r *UserRepo) FindApprovedManagerInCity(ctx context.Context, city string) (*models.User, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	var u models.User
	err := r.coll.FindOne(ctx, approvedManagerFilter(city), opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func approvedManagerFilter(city string) bson.M {
	return bson.M{
		"role":          models.RoleManager,
		"approved":      true,
		"location.city": city,
	}
}

// Summaries loads the public projection of each id, keyed by id. Unknown ids
// are absent from the result.
func (r *UserRepo) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1, "email": 1, "phone": 1})
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": uniqueIDs(ids)}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find user summaries: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []models.UserSummary
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode user summaries: %w", err)
	}
	for _, s := range rows {
		out[s.ID] = s
	}
	return out, nil
}

// List returns users matching filter, oldest first.
func (r *UserRepo) List(ctx context.Context, filter bson.M) ([]models.User, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// IDs returns the ids of every user matching filter.
func (r *UserRepo) IDs(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find user ids: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode user ids: %w", err)
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// UpdateFields applies $set to one user and returns the stored result.
func (r *UserRepo) UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lifecycle.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetRoleIf changes a user's role only while it still equals from, so two
// admins acting on the same user cannot both apply a transition.
func (r *UserRepo) SetRoleIf(ctx context.Context, id primitive.ObjectID, from, to string, approved bool, at time.Time) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"role": to, "approved": approved, "updatedAt": at}}
	var u models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "role": from}, update, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lifecycle.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
