package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"movment/db"
	"movment/lifecycle"
	"movment/lifecycle/lifecycletest"
	"movment/middleware"
	"movment/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[primitive.ObjectID]*models.User{}}
}

func (m *memUsers) Insert(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return db.ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, lifecycle.ErrNotFound
}

func (m *memUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *memUsers) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Phone != "" && u.Phone == phone })
}

func (m *memUsers) approve(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			u.Approved = true
		}
	}
}

type memRevoker struct {
	mu  sync.Mutex
	ids map[string]time.Duration
}

func (r *memRevoker) Revoke(_ context.Context, id string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = ttl
	return nil
}

func (r *memRevoker) Revoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok, nil
}

type fixture struct {
	users    *memUsers
	gate     *middleware.Gate
	revoker  *memRevoker
	activity *lifecycletest.Activity
	h        *Handler
}

func newFixture() *fixture {
	f := &fixture{
		users:    newMemUsers(),
		revoker:  &memRevoker{ids: map[string]time.Duration{}},
		activity: &lifecycletest.Activity{},
	}
	f.gate = middleware.NewGate([]byte("secret"), time.Hour, f.users, zap.NewNop()).WithRevocations(f.revoker)
	f.h = NewHandler(f.users, f.gate, f.revoker, f.activity, zap.NewNop())
	f.h.cost = bcrypt.MinCost
	return f
}

func post(h func(http.ResponseWriter, *http.Request), body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.RemoteAddr = "10.0.0.7:5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func (f *fixture) register(body any) *httptest.ResponseRecorder {
	return post(func(w http.ResponseWriter, r *http.Request) { f.h.Register(w, r, nil) }, body)
}

func (f *fixture) login(body any) *httptest.ResponseRecorder {
	return post(func(w http.ResponseWriter, r *http.Request) { f.h.Login(w, r, nil) }, body)
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg, _ := body["message"].(string)
	return msg
}

func TestRegisterValidatesAndRejectsDuplicates(t *testing.T) {
	f := newFixture()

	rec := f.register(map[string]string{"name": "Asha"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name, email and password are required", message(t, rec))

	rec = f.register(map[string]string{"name": "Asha", "email": "a@x.io", "password": "pw", "role": "owner"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Role must be user or manager", message(t, rec))

	rec = f.register(map[string]string{"name": "Asha", "email": "A@X.io", "password": "pw"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created publicUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "a@x.io", created.Email)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.True(t, created.Approved)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = f.register(map[string]string{"name": "Other", "email": "a@x.io", "password": "pw2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginByEmailAndPhone(t *testing.T) {
	f := newFixture()
	require.Equal(t, http.StatusCreated, f.register(map[string]string{
		"name": "Ravi", "email": "ravi@x.io", "password": "s3cret", "phone": "9876543210",
	}).Code)

	rec := f.login(map[string]string{"email": "RAVI@x.io", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Token string     `json:"token"`
		User  publicUser `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "Ravi", body.User.Name)

	claims, err := f.gate.ParseToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.User.ID.Hex(), claims.UserID)

	assert.Equal(t, http.StatusOK, f.login(map[string]string{"phone": "9876543210", "password": "s3cret"}).Code)
	assert.Equal(t, []models.ActivityAction{models.ActionLogin, models.ActionLogin}, f.activity.Actions)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture()
	f.register(map[string]string{"name": "Ravi", "email": "ravi@x.io", "password": "s3cret"})

	rec := f.login(map[string]string{"email": "ravi@x.io", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", message(t, rec))

	rec = f.login(map[string]string{"email": "nobody@x.io", "password": "s3cret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.login(map[string]string{"password": "s3cret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email or phone required", message(t, rec))
}

func TestUnapprovedManagerCannotLogin(t *testing.T) {
	f := newFixture()
	rec := f.register(map[string]string{"name": "Meera", "email": "meera@x.io", "password": "pw", "role": "Manager"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.login(map[string]string{"email": "meera@x.io", "password": "pw"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, middleware.PendingApprovalMessage, message(t, rec))

	f.users.approve("meera@x.io")
	assert.Equal(t, http.StatusOK, f.login(map[string]string{"email": "meera@x.io", "password": "pw"}).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture()
	f.register(map[string]string{"name": "Ravi", "email": "ravi@x.io", "password": "s3cret"})
	rec := f.login(map[string]string{"email": "ravi@x.io", "password": "s3cret"})
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	logout := f.gate.Authenticate(f.h.Logout)
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer "+body.Token)
		rec := httptest.NewRecorder()
		logout(rec, req, nil)
		return rec
	}

	require.Equal(t, http.StatusOK, call().Code)
	assert.Len(t, f.revoker.ids, 1)
	for _, ttl := range f.revoker.ids {
		assert.Greater(t, ttl, 59*time.Minute)
	}
	assert.Equal(t, http.StatusUnauthorized, call().Code)
	assert.Contains(t, f.activity.Actions, models.ActionLogout)
}
