package tickets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"movment/globals"
	"movment/lifecycle"
	"movment/lifecycle/lifecycletest"
	"movment/models"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memStore struct {
	mu      sync.Mutex
	tickets map[primitive.ObjectID]*models.SupportTicket
}

func newMemStore() *memStore {
	return &memStore{tickets: map[primitive.ObjectID]*models.SupportTicket{}}
}

func (m *memStore) Insert(_ context.Context, t *models.SupportTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = primitive.NewObjectID()
	cp := *t
	m.tickets[t.ID] = &cp
	return nil
}

func (m *memStore) ListForUser(_ context.Context, user primitive.ObjectID) ([]models.SupportTicket, error) {
	return m.filter(func(t *models.SupportTicket) bool { return t.User == user }), nil
}

func (m *memStore) List(_ context.Context, category string, status models.TicketStatus) ([]models.SupportTicket, error) {
	return m.filter(func(t *models.SupportTicket) bool {
		return (category == "" || t.Category == category) && (status == "" || t.Status == status)
	}), nil
}

func (m *memStore) filter(keep func(*models.SupportTicket) bool) []models.SupportTicket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SupportTicket{}
	for _, t := range m.tickets {
		if keep(t) {
			out = append(out, *t)
		}
	}
	return out
}

func (m *memStore) Find(_ context.Context, id, owner primitive.ObjectID) (*models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || (!owner.IsZero() && t.User != owner) {
		return nil, lifecycle.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) Update(_ context.Context, id, owner primitive.ObjectID, status models.TicketStatus, reply *models.TicketReply, at time.Time) (*models.SupportTicket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok || (!owner.IsZero() && t.User != owner) {
		return nil, lifecycle.ErrNotFound
	}
	if status != "" {
		t.Status = status
	}
	if reply != nil {
		t.Replies = append(t.Replies, *reply)
	}
	t.UpdatedAt = at
	cp := *t
	return &cp, nil
}

type activityLog struct{ actions []models.ActivityAction }

func (a *activityLog) Record(_ context.Context, _ primitive.ObjectID, action models.ActivityAction, _ string, _ *primitive.ObjectID) {
	a.actions = append(a.actions, action)
}

type fixture struct {
	store    *memStore
	notifier *lifecycletest.Notifier
	activity *activityLog
	h        *Handler
	customer *models.User
	admin    *models.User
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		notifier: &lifecycletest.Notifier{},
		activity: &activityLog{},
		customer: &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser},
		admin:    &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin},
	}
	f.h = NewHandler(f.store, f.notifier, f.activity, zap.NewNop())
	return f
}

func do(h httprouter.Handle, as *models.User, method, target, body string, ps httprouter.Params) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), globals.UserKey, as))
	rec := httptest.NewRecorder()
	h(rec, req, ps)
	return rec
}

func idParam(id primitive.ObjectID) httprouter.Params {
	return httprouter.Params{{Key: "id", Value: id.Hex()}}
}

func (f *fixture) open(t *testing.T, body string) models.SupportTicket {
	t.Helper()
	rec := do(f.h.Create, f.customer, http.MethodPost, "/api/user/support", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ticket models.SupportTicket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticket))
	return ticket
}

func TestCreateTicket(t *testing.T) {
	f := newFixture()
	event := primitive.NewObjectID()
	ticket := f.open(t, `{"subject":" Late decorator ","message":"Nobody came","relatedEventId":"`+event.Hex()+`"}`)

	assert.Equal(t, "Late decorator", ticket.Subject)
	assert.Equal(t, "query", ticket.Category)
	assert.Equal(t, models.TicketOpen, ticket.Status)
	require.NotNil(t, ticket.RelatedEvent)
	assert.Equal(t, event, *ticket.RelatedEvent)
	assert.Equal(t, []models.ActivityAction{models.ActionSupportTicket}, f.activity.actions)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture()
	cases := map[string]string{
		`{"subject":"Hi"}`:                                    "Subject and message required",
		`{"subject":"Hi","message":"x","category":"rant"}`:    "Invalid category",
		`{"subject":"Hi","message":"x","relatedEventId":"1"}`: "Invalid relatedEventId",
	}
	for body, want := range cases {
		rec := do(f.h.Create, f.customer, http.MethodPost, "/api/user/support", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), want)
	}
}

func TestTicketsAreOwnerScoped(t *testing.T) {
	f := newFixture()
	ticket := f.open(t, `{"subject":"Refund","message":"Please","category":"complaint"}`)
	stranger := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}

	rec := do(f.h.GetMine, stranger, http.MethodGet, "/", "", idParam(ticket.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not found")

	rec = do(f.h.ReplyMine, stranger, http.MethodPost, "/", `{"message":"hi"}`, idParam(ticket.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(f.h.ReplyMine, f.customer, http.MethodPost, "/", `{"message":"  "}`, idParam(ticket.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Message required")

	rec = do(f.h.ReplyMine, f.customer, http.MethodPost, "/", `{"message":"any update?"}`, idParam(ticket.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.SupportTicket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Replies, 1)
	assert.Equal(t, models.FromUser, got.Replies[0].From)

	rec = do(f.h.ListMine, stranger, http.MethodGet, "/", "", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAnswerNotifiesCustomer(t *testing.T) {
	f := newFixture()
	ticket := f.open(t, `{"subject":"Venue","message":"Change hall","category":"query"}`)

	rec := do(f.h.Answer, f.admin, http.MethodPatch, "/", `{"status":"done"}`, idParam(ticket.ID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(f.h.Answer, f.admin, http.MethodPatch, "/", `{"status":"resolved","reply":"Moved to Hall B"}`, idParam(ticket.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got models.SupportTicket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.TicketResolved, got.Status)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, models.FromSupport, got.Replies[0].From)

	notes := f.notifier.OfType(models.NotifySupportReply)
	require.Len(t, notes, 1)
	assert.Equal(t, f.customer.ID, notes[0].User)

	rec = do(f.h.Answer, f.admin, http.MethodPatch, "/", `{"status":"closed"}`, idParam(ticket.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.notifier.OfType(models.NotifySupportReply), 1)

	rec = do(f.h.List, f.admin, http.MethodGet, "/api/admin/support-tickets?status=closed&category=query", "", nil)
	var list []models.SupportTicket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(f.h.Answer, f.admin, http.MethodPatch, "/", `{"reply":"x"}`, idParam(primitive.NewObjectID()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
