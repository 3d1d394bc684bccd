package admin

import (
	"net/http"
	"strconv"
	"time"

	"movment/activity"
	"movment/db"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type eventLocation struct {
	City    string `json:"city"`
	Pincode string `json:"pincode,omitempty"`
}

type eventRow struct {
	ID              primitive.ObjectID  `json:"id"`
	Type            string              `json:"type"`
	Title           string              `json:"title"`
	Status          models.EventStatus  `json:"status"`
	ScheduledAt     time.Time           `json:"scheduledAt"`
	Location        eventLocation       `json:"location"`
	BookedBy        *models.UserSummary `json:"bookedBy"`
	AssignedManager *models.UserSummary `json:"assignedManager"`
}

func lookup(people map[primitive.ObjectID]models.UserSummary, id primitive.ObjectID) *models.UserSummary {
	if s, ok := people[id]; ok {
		return &s
	}
	return nil
}

// Events handles GET /api/admin/events: every event newest first, with the
// customer and manager resolved to name and email.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	list, err := h.events.Query(ctx, db.EventQuery{Newest: true})
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	ids := make([]primitive.ObjectID, 0, 2*len(list))
	for _, ev := range list {
		ids = append(ids, ev.BookedBy)
		if ev.AssignedManager != nil {
			ids = append(ids, *ev.AssignedManager)
		}
	}
	people, err := h.users.Summaries(ctx, ids)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	rows := make([]eventRow, len(list))
	for i, ev := range list {
		rows[i] = eventRow{
			ID:          ev.ID,
			Type:        ev.Type,
			Title:       ev.Title,
			Status:      ev.Status,
			ScheduledAt: ev.ScheduledAt,
			Location:    eventLocation{City: ev.Location.City, Pincode: ev.Location.Pincode},
			BookedBy:    lookup(people, ev.BookedBy),
		}
		if ev.AssignedManager != nil {
			rows[i].AssignedManager = lookup(people, *ev.AssignedManager)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, rows)
}

// Activity handles GET /api/admin/user-activity?userId=&action=&limit=.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	f := activity.Filter{Action: models.ActivityAction(q.Get("action"))}
	if id, err := primitive.ObjectIDFromHex(q.Get("userId")); err == nil {
		f.User = id
	}
	if n, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil {
		f.Limit = n
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.audit.List(ctx, f)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}
