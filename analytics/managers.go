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
)

type ManagerStats struct {
	ID              primitive.ObjectID `json:"id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	TotalEvents     int                `json:"totalEvents"`
	CompletedEvents int                `json:"completedEvents"`
	CompletionRate  int                `json:"completionRate"`
	AvgRating       float64            `json:"avgRating"`
	FeedbackCount   int                `json:"feedbackCount"`
}

// managerStats reports every manager account, including those with no
// events or feedback yet. Tallies for other roles are dropped.
func (h *Handler) managerStats(ctx context.Context) ([]ManagerStats, error) {
	managers, err := h.users.List(ctx, bson.M{"role": models.RoleManager})
	if err != nil {
		return nil, err
	}
	loads, err := h.store.ManagerLoads(ctx)
	if err != nil {
		return nil, err
	}
	ratings, err := h.store.ManagerRatings(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ManagerStats, len(managers))
	index := make(map[primitive.ObjectID]*ManagerStats, len(managers))
	for i, m := range managers {
		out[i] = ManagerStats{ID: m.ID, Name: m.Name, Email: m.Email}
		index[m.ID] = &out[i]
	}
	for _, l := range loads {
		if s, ok := index[l.Manager]; ok {
			s.TotalEvents, s.CompletedEvents = l.Total, l.Completed
			if l.Total > 0 {
				s.CompletionRate = int(math.Round(float64(l.Completed) / float64(l.Total) * 100))
			}
		}
	}
	for _, r := range ratings {
		if s, ok := index[r.Manager]; ok {
			s.AvgRating, s.FeedbackCount = round2(r.AvgRating), r.Count
		}
	}
	return out, nil
}

// ManagerPerformance handles GET /api/admin/analytics/manager-performance.
func (h *Handler) ManagerPerformance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	stats, err := cached(ctx, h, keyPerformance, h.managerStats)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, stats)
}

type loadEvent struct {
	ID          primitive.ObjectID `json:"id"`
	Title       string             `json:"title"`
	ScheduledAt time.Time          `json:"scheduledAt"`
}

type managerLoad struct {
	Manager models.UserSummary `json:"manager"`
	Count   int                `json:"count"`
	Events  []loadEvent        `json:"events"`
}

type Load struct {
	ByManager     []managerLoad `json:"byManager"`
	PendingCount  int           `json:"pendingCount"`
	TotalUpcoming int           `json:"totalUpcoming"`
}

var upcomingStatuses = []models.EventStatus{models.StatusPending, models.StatusAccepted, models.StatusInProgress}

// groupLoad buckets upcoming events by manager in first-seen order.
// Unassigned events share one bucket.
func groupLoad(list []models.Event, people map[primitive.ObjectID]models.UserSummary) []managerLoad {
	out := []managerLoad{}
	pos := map[primitive.ObjectID]int{}
	for _, ev := range list {
		var key primitive.ObjectID
		if ev.AssignedManager != nil {
			key = *ev.AssignedManager
		}
		i, ok := pos[key]
		if !ok {
			who := models.UserSummary{Name: "Unassigned"}
			if !key.IsZero() {
				who = people[key]
				who.ID = key
			}
			i = len(out)
			pos[key] = i
			out = append(out, managerLoad{Manager: who, Events: []loadEvent{}})
		}
		out[i].Count++
		out[i].Events = append(out[i].Events, loadEvent{ID: ev.ID, Title: ev.Title, ScheduledAt: ev.ScheduledAt})
	}
	return out
}

// Load handles GET /api/admin/analytics/load: the upcoming workload per
// manager. It is always computed live.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	list, err := h.events.Query(ctx, db.EventQuery{Statuses: upcomingStatuses, From: h.now().UTC()})
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(list))
	for _, ev := range list {
		if ev.AssignedManager != nil {
			ids = append(ids, *ev.AssignedManager)
		}
	}
	people, err := h.users.Summaries(ctx, ids)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	byStatus, err := h.store.EventsByStatus(ctx)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, Load{
		ByManager:     groupLoad(list, people),
		PendingCount:  counts(byStatus)[string(models.StatusPending)],
		TotalUpcoming: len(list),
	})
}
