// Package analytics serves the admin dashboards. Aggregates are computed in
// Mongo and cached in Redis until a booking, payment or review changes them.
package analytics

import (
	"context"
	"math"
	"net/http"
	"time"

	"movment/db"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Store interface {
	Revenue(ctx context.Context, from time.Time) (float64, error)
	Bookings(ctx context.Context, from time.Time) (live, cancelled int64, err error)
	Ratings(ctx context.Context, from time.Time) (db.RatingStats, error)
	EventsByStatus(ctx context.Context) ([]db.Count, error)
	EventsByType(ctx context.Context) ([]db.Count, error)
	BusiestDates(ctx context.Context, limit int) ([]db.Count, error)
	ManagerLoads(ctx context.Context) ([]db.ManagerLoad, error)
	ManagerRatings(ctx context.Context) ([]db.ManagerRating, error)
}

type Users interface {
	List(ctx context.Context, filter bson.M) ([]models.User, error)
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

type Events interface {
	Query(ctx context.Context, q db.EventQuery) ([]models.Event, error)
}

// Cache is satisfied by *rdx.Cache, including a nil one.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

const (
	cacheTTL       = 5 * time.Minute
	busiestLimit   = 10
	keyDashboard   = "dashboard"
	keyPerformance = "manager-performance"
	keyReportWeek  = "reports:week"
	keyReportMonth = "reports:month"
)

// Keys lists every cached aggregate.
var Keys = []string{keyDashboard, keyPerformance, keyReportWeek, keyReportMonth}

type Handler struct {
	store  Store
	users  Users
	events Events
	cache  Cache
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(store Store, users Users, events Events, cache Cache, logger *zap.Logger) *Handler {
	return &Handler{store: store, users: users, events: events, cache: cache, logger: logger, now: time.Now}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func counts(rows []db.Count) map[string]int {
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out
}

// cached serves key from the cache or computes and stores it. Cache failures
// only cost a recomputation.
func cached[T any](ctx context.Context, h *Handler, key string, compute func(context.Context) (T, error)) (T, error) {
	var v T
	if h.cache != nil {
		hit, err := h.cache.GetJSON(ctx, key, &v)
		if err != nil {
			h.logger.Debug("analytics cache read", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return v, nil
		}
	}
	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, key, v, cacheTTL); err != nil {
			h.logger.Debug("analytics cache write", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

type DashboardStats struct {
	Revenue         float64        `json:"revenue"`
	BookingsCount   int64          `json:"bookingsCount"`
	CancelledCount  int64          `json:"cancelledCount"`
	AvgRating       float64        `json:"avgRating"`
	FeedbackCount   int            `json:"feedbackCount"`
	ByStatus        map[string]int `json:"byStatus"`
	ByType          map[string]int `json:"byType"`
	HighDemandDates []db.Count     `json:"highDemandDates"`
	Period          string         `json:"period"`
}

func (h *Handler) dashboard(ctx context.Context) (DashboardStats, error) {
	from := startOfMonth(h.now())
	var out DashboardStats
	rep, err := h.report(ctx, from)
	if err != nil {
		return out, err
	}
	byStatus, err := h.store.EventsByStatus(ctx)
	if err != nil {
		return out, err
	}
	byType, err := h.store.EventsByType(ctx)
	if err != nil {
		return out, err
	}
	busiest, err := h.store.BusiestDates(ctx, busiestLimit)
	if err != nil {
		return out, err
	}
	if busiest == nil {
		busiest = []db.Count{}
	}
	return DashboardStats{
		Revenue:         rep.Revenue,
		BookingsCount:   rep.Bookings,
		CancelledCount:  rep.Cancelled,
		AvgRating:       rep.AvgRating,
		FeedbackCount:   rep.FeedbackCount,
		ByStatus:        counts(byStatus),
		ByType:          counts(byType),
		HighDemandDates: busiest,
		Period:          "month",
	}, nil
}

// Dashboard handles GET /api/admin/analytics/dashboard: month-to-date figures
// plus all-time status and type breakdowns.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	stats, err := cached(ctx, h, keyDashboard, h.dashboard)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}
