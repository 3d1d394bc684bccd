package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type userStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func (s *userStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	return &u, nil
}

func (s *userStore) put(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func newGate(t *testing.T, users ...models.User) (*Gate, *userStore) {
	t.Helper()
	store := &userStore{users: map[primitive.ObjectID]models.User{}}
	for _, u := range users {
		store.put(u)
	}
	return NewGate([]byte("test-secret"), time.Hour, store, zap.NewNop()), store
}

func ok(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"role": utils.UserFromRequest(r).Role})
}

func call(h httprouter.Handle, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["message"]
}

func TestAuthenticateRejectsMissingAndBadTokens(t *testing.T) {
	gate, _ := newGate(t)
	h := gate.Authenticate(ok)

	assert.Equal(t, http.StatusUnauthorized, call(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(h, "garbage").Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token format", message(t, rec))
}

func TestAuthenticateRejectsDeletedUser(t *testing.T) {
	u := models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	gate, _ := newGate(t)
	token, err := gate.IssueToken(&u)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call(gate.Authenticate(ok), token).Code)
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	gate, _ := newGate(t)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: primitive.NewObjectID().Hex()})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = gate.ParseToken(raw)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	u := models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	gate, _ := newGate(t, u)
	gate.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := gate.IssueToken(&u)
	require.NoError(t, err)

	gate.now = time.Now
	_, err = gate.ParseToken(token)
	assert.Error(t, err)
}

func TestDemotedAdminLosesAccessOnNextRequest(t *testing.T) {
	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin, Approved: true}
	gate, store := newGate(t, admin)
	token, err := gate.IssueToken(&admin)
	require.NoError(t, err)

	h := Chain(gate.Authenticate, gate.RequireRoles(models.RoleAdmin, models.RoleOwner))(ok)
	assert.Equal(t, http.StatusOK, call(h, token).Code)

	admin.Role = models.RoleUser
	store.put(admin)

	rec := call(h, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", message(t, rec))
}

func TestUnapprovedManagerIsRefused(t *testing.T) {
	mgr := models.User{ID: primitive.NewObjectID(), Role: models.RoleManager}
	gate, store := newGate(t, mgr)
	token, err := gate.IssueToken(&mgr)
	require.NoError(t, err)

	h := Chain(gate.Authenticate, gate.RequireRoles(models.RoleManager, models.RoleAdmin))(ok)
	rec := call(h, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, PendingApprovalMessage, message(t, rec))

	mgr.Approved = true
	store.put(mgr)
	assert.Equal(t, http.StatusOK, call(h, token).Code)
}

func TestStoreRoleWinsOverTokenClaim(t *testing.T) {
	u := models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	gate, _ := newGate(t, u)

	forged := u
	forged.Role = models.RoleOwner
	token, err := gate.IssueToken(&forged)
	require.NoError(t, err)

	h := Chain(gate.Authenticate, gate.RequireRoles(models.RoleOwner))(ok)
	assert.Equal(t, http.StatusForbidden, call(h, token).Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(httprouter.Handle) httprouter.Handle {
		return func(next httprouter.Handle) httprouter.Handle {
			return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
				order = append(order, name)
				next(w, r, ps)
			}
		}
	}
	h := Chain(mw("a"), mw("b"), mw("c"))(func(http.ResponseWriter, *http.Request, httprouter.Params) {
		order = append(order, "handler")
	})
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestLoggingSetsRequestID(t *testing.T) {
	h := Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

type revocations map[string]bool

func (r revocations) Revoked(_ context.Context, id string) (bool, error) {
	return r[id], nil
}

func TestRevokedTokenIsRejected(t *testing.T) {
	u := models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	gate, _ := newGate(t, u)
	revoked := revocations{}
	gate.WithRevocations(revoked)

	token, err := gate.IssueToken(&u)
	require.NoError(t, err)
	h := gate.Authenticate(ok)
	assert.Equal(t, http.StatusOK, call(h, token).Code)

	claims, err := gate.ParseToken(token)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)
	revoked[claims.ID] = true

	rec := call(h, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", message(t, rec))
}
