package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"movment/db"
	"movment/models"
	"movment/rdx"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeStore struct {
	calls    int
	from     time.Time
	revenue  float64
	ratings  db.RatingStats
	byStatus []db.Count
	loads    []db.ManagerLoad
	mratings []db.ManagerRating
}

func (s *fakeStore) Revenue(_ context.Context, from time.Time) (float64, error) {
	s.calls++
	s.from = from
	return s.revenue, nil
}

func (s *fakeStore) Bookings(context.Context, time.Time) (int64, int64, error) { return 7, 2, nil }

func (s *fakeStore) Ratings(context.Context, time.Time) (db.RatingStats, error) { return s.ratings, nil }

func (s *fakeStore) EventsByStatus(context.Context) ([]db.Count, error) { return s.byStatus, nil }

func (s *fakeStore) EventsByType(context.Context) ([]db.Count, error) {
	return []db.Count{{Key: "wedding", Count: 4}}, nil
}

func (s *fakeStore) BusiestDates(context.Context, int) ([]db.Count, error) { return nil, nil }

func (s *fakeStore) ManagerLoads(context.Context) ([]db.ManagerLoad, error) { return s.loads, nil }

func (s *fakeStore) ManagerRatings(context.Context) ([]db.ManagerRating, error) {
	return s.mratings, nil
}

type fakeUsers struct{ managers []models.User }

func (u *fakeUsers) List(context.Context, bson.M) ([]models.User, error) { return u.managers, nil }

func (u *fakeUsers) Summaries(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := map[primitive.ObjectID]models.UserSummary{}
	for _, m := range u.managers {
		out[m.ID] = models.UserSummary{ID: m.ID, Name: m.Name, Email: m.Email}
	}
	return out, nil
}

type fakeEvents struct {
	list []models.Event
	last db.EventQuery
}

func (e *fakeEvents) Query(_ context.Context, q db.EventQuery) ([]models.Event, error) {
	e.last = q
	return e.list, nil
}

var fixedNow = time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)

func newHandler(store *fakeStore, users *fakeUsers, events *fakeEvents, cache Cache) *Handler {
	h := NewHandler(store, users, events, cache, zap.NewNop())
	h.now = func() time.Time { return fixedNow }
	return h
}

func get(t *testing.T, h func(http.ResponseWriter, *http.Request), target string, out any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestDashboardWithoutCache(t *testing.T) {
	store := &fakeStore{
		revenue:  1234.567,
		ratings:  db.RatingStats{Avg: 4.3333, Count: 3},
		byStatus: []db.Count{{Key: "pending", Count: 5}, {Key: "completed", Count: 2}},
	}
	h := newHandler(store, &fakeUsers{}, &fakeEvents{}, (*rdx.Cache)(nil))

	var got DashboardStats
	get(t, func(w http.ResponseWriter, r *http.Request) { h.Dashboard(w, r, nil) }, "/", &got)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), store.from)
	assert.Equal(t, 1234.57, got.Revenue)
	assert.Equal(t, int64(7), got.BookingsCount)
	assert.Equal(t, int64(2), got.CancelledCount)
	assert.Equal(t, 4.33, got.AvgRating)
	assert.Equal(t, 3, got.FeedbackCount)
	assert.Equal(t, map[string]int{"pending": 5, "completed": 2}, got.ByStatus)
	assert.Equal(t, map[string]int{"wedding": 4}, got.ByType)
	assert.NotNil(t, got.HighDemandDates)
	assert.Equal(t, "month", got.Period)
}

func TestDashboardServedFromCache(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("analytics:dashboard").SetVal(`{"revenue":99,"period":"month"}`)

	store := &fakeStore{}
	h := newHandler(store, &fakeUsers{}, &fakeEvents{}, rdx.NewCache(client, "analytics:"))

	var got DashboardStats
	get(t, func(w http.ResponseWriter, r *http.Request) { h.Dashboard(w, r, nil) }, "/", &got)

	assert.Equal(t, 99.0, got.Revenue)
	assert.Zero(t, store.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportsPeriod(t *testing.T) {
	store := &fakeStore{}
	h := newHandler(store, &fakeUsers{}, &fakeEvents{}, (*rdx.Cache)(nil))

	var week Report
	get(t, func(w http.ResponseWriter, r *http.Request) { h.Reports(w, r, nil) }, "/?period=week", &week)
	assert.Equal(t, "week", week.Period)
	assert.Equal(t, fixedNow.AddDate(0, 0, -7), week.Start)
	assert.Equal(t, fixedNow, week.End)

	var month Report
	get(t, func(w http.ResponseWriter, r *http.Request) { h.Reports(w, r, nil) }, "/?period=year", &month)
	assert.Equal(t, "month", month.Period)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), month.Start)
}

func TestManagerPerformance(t *testing.T) {
	busy := models.User{ID: primitive.NewObjectID(), Name: "Ravi", Role: models.RoleManager}
	idle := models.User{ID: primitive.NewObjectID(), Name: "Meera", Role: models.RoleManager}
	store := &fakeStore{
		loads: []db.ManagerLoad{
			{Manager: busy.ID, Total: 3, Completed: 2},
			{Manager: primitive.NewObjectID(), Total: 9, Completed: 9},
		},
		mratings: []db.ManagerRating{{Manager: busy.ID, AvgRating: 4.666, Count: 3}},
	}
	h := newHandler(store, &fakeUsers{managers: []models.User{busy, idle}}, &fakeEvents{}, (*rdx.Cache)(nil))

	var got []ManagerStats
	get(t, func(w http.ResponseWriter, r *http.Request) { h.ManagerPerformance(w, r, nil) }, "/", &got)

	require.Len(t, got, 2)
	assert.Equal(t, ManagerStats{ID: busy.ID, Name: "Ravi", TotalEvents: 3, CompletedEvents: 2, CompletionRate: 67, AvgRating: 4.67, FeedbackCount: 3}, got[0])
	assert.Equal(t, ManagerStats{ID: idle.ID, Name: "Meera"}, got[1])
}

func TestLoadGroupsByManager(t *testing.T) {
	m := models.User{ID: primitive.NewObjectID(), Name: "Ravi", Email: "ravi@example.com"}
	at := fixedNow.Add(48 * time.Hour)
	events := &fakeEvents{list: []models.Event{
		{ID: primitive.NewObjectID(), Title: "A", AssignedManager: &m.ID, ScheduledAt: at},
		{ID: primitive.NewObjectID(), Title: "B", ScheduledAt: at},
		{ID: primitive.NewObjectID(), Title: "C", AssignedManager: &m.ID, ScheduledAt: at},
	}}
	store := &fakeStore{byStatus: []db.Count{{Key: "pending", Count: 4}}}
	h := newHandler(store, &fakeUsers{managers: []models.User{m}}, events, (*rdx.Cache)(nil))

	var got Load
	get(t, func(w http.ResponseWriter, r *http.Request) { h.Load(w, r, nil) }, "/", &got)

	assert.Equal(t, upcomingStatuses, events.last.Statuses)
	assert.Equal(t, fixedNow, events.last.From)
	assert.Equal(t, 4, got.PendingCount)
	assert.Equal(t, 3, got.TotalUpcoming)
	require.Len(t, got.ByManager, 2)
	assert.Equal(t, "ravi@example.com", got.ByManager[0].Manager.Email)
	assert.Equal(t, 2, got.ByManager[0].Count)
	assert.Equal(t, "Unassigned", got.ByManager[1].Manager.Name)
	assert.Equal(t, "B", got.ByManager[1].Events[0].Title)
}

func TestInvalidatorDropsKeysOnBooking(t *testing.T) {
	client, mock := redismock.NewClientMock()
	full := make([]string, len(Keys))
	for i, k := range Keys {
		full[i] = "analytics:" + k
	}
	mock.ExpectDel(full...).SetVal(int64(len(full)))

	v := NewInvalidator(rdx.NewCache(client, "analytics:"), zap.NewNop())
	msgs := make(chan *redis.Message, 3)
	login, _ := json.Marshal(models.UserActivity{Action: models.ActionLogin})
	booked, _ := json.Marshal(models.UserActivity{Action: models.ActionBookingCreated})
	msgs <- &redis.Message{Payload: "not json"}
	msgs <- &redis.Message{Payload: string(login)}
	msgs <- &redis.Message{Payload: string(booked)}
	close(msgs)

	v.Run(context.Background(), msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
