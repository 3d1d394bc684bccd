// Package auth handles registration, login and logout.
package auth

import (
	"context"
	"time"

	"movment/middleware"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Users interface {
	Insert(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
}

type Tokens interface {
	IssueToken(u *models.User) (string, error)
	ParseToken(raw string) (*middleware.Claims, error)
}

// Revoker is optional; without it logout only records activity.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

type ActivityRecorder interface {
	Record(ctx context.Context, user primitive.ObjectID, action models.ActivityAction, entityType string, entityID *primitive.ObjectID)
}

type Handler struct {
	users    Users
	tokens   Tokens
	revoker  Revoker
	activity ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
	cost     int
}

func NewHandler(users Users, tokens Tokens, revoker Revoker, activity ActivityRecorder, logger *zap.Logger) *Handler {
	return &Handler{
		users:    users,
		tokens:   tokens,
		revoker:  revoker,
		activity: activity,
		logger:   logger,
		now:      time.Now,
		cost:     bcrypt.DefaultCost,
	}
}

type publicUser struct {
	ID       primitive.ObjectID `json:"id"`
	Name     string             `json:"name"`
	Email    string             `json:"email"`
	Role     string             `json:"role"`
	Approved bool               `json:"approved"`
}

func toPublic(u *models.User) publicUser {
	return publicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Approved: u.Approved}
}
