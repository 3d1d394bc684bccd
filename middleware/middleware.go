package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"movment/globals"
	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const PendingApprovalMessage = "Your manager account is pending approval"

// ErrInvalidToken covers malformed, expired, wrongly signed and revoked tokens.
var ErrInvalidToken = errors.New("invalid token")

// JWT claims. Role is informational only; the gate always trusts the store.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type UserLoader interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Revocations reports tokens invalidated by logout before they expire.
type Revocations interface {
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// Gate authenticates bearer tokens and re-loads the caller from the store on
// every request, so role and approval changes apply immediately.
type Gate struct {
	secret  []byte
	ttl     time.Duration
	users   UserLoader
	revoked Revocations
	logger  *zap.Logger
	now     func() time.Time
}

func NewGate(secret []byte, ttl time.Duration, users UserLoader, logger *zap.Logger) *Gate {
	return &Gate{secret: secret, ttl: ttl, users: users, logger: logger, now: time.Now}
}

// WithRevocations enables logout. Without it tokens stay valid until expiry.
func (g *Gate) WithRevocations(r Revocations) *Gate {
	g.revoked = r
	return g
}

func (g *Gate) IssueToken(u *models.User) (string, error) {
	now := g.now()
	claims := Claims{
		UserID: u.ID.Hex(),
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

func (g *Gate) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// UserFromToken validates raw and returns the current stored user.
func (g *Gate) UserFromToken(ctx context.Context, raw string) (*models.User, error) {
	claims, err := g.ParseToken(raw)
	if err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: subject %q", ErrInvalidToken, claims.UserID)
	}
	if g.revoked != nil && claims.ID != "" {
		revoked, err := g.revoked.Revoked(ctx, claims.ID)
		if err != nil {
			g.logger.Warn("revocation check failed", zap.Error(err))
		} else if revoked {
			return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
		}
	}
	return g.users.FindByID(ctx, id)
}

// TokenTTL reports how long a token issued now stays valid; logout revokes for this long.
func (g *Gate) TokenTTL() time.Duration {
	return g.ttl
}

func (g *Gate) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
			return
		}
		raw, ok := strings.CutPrefix(tokenString, "Bearer ")
		if !ok || raw == "" {
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}

		user, err := g.UserFromToken(r.Context(), raw)
		switch {
		case errors.Is(err, lifecycle.ErrNotFound):
			utils.RespondWithError(w, http.StatusUnauthorized, "User no longer exists")
			return
		case errors.Is(err, ErrInvalidToken):
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		case err != nil:
			utils.RespondWithErr(w, g.logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), globals.UserKey, user)
		next(w, r.WithContext(ctx), ps)
	}
}

// RequireRoles must run after Authenticate. Unapproved managers are refused
// even on routes that allow the manager role.
func (g *Gate) RequireRoles(roles ...string) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			user := utils.UserFromRequest(r)
			if user == nil {
				utils.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !slices.Contains(roles, user.Role) {
				utils.RespondWithError(w, http.StatusForbidden, "Access denied")
				return
			}
			if user.Role == models.RoleManager && !user.Approved {
				utils.RespondWithError(w, http.StatusForbidden, PendingApprovalMessage)
				return
			}
			next(w, r, ps)
		}
	}
}

// Chain applies middlewares so that the first one listed runs first.
func Chain(mws ...func(httprouter.Handle) httprouter.Handle) func(httprouter.Handle) httprouter.Handle {
	return func(final httprouter.Handle) httprouter.Handle {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}
