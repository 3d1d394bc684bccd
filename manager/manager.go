// Package manager serves the manager console: the manager's own events,
// calendar and nearby views, crew and reminders, inventory and performance.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"movment/db"
	"movment/events"
	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Events interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	ListPending(ctx context.Context, city string) ([]models.Event, error)
	Query(ctx context.Context, q db.EventQuery) ([]models.Event, error)
}

type TeamAssigner interface {
	AssignTeam(ctx context.Context, actor lifecycle.Actor, id primitive.ObjectID, team []string) (*models.Event, error)
}

type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type Resources interface {
	List(ctx context.Context, manager primitive.ObjectID) ([]models.Resource, error)
	Insert(ctx context.Context, res *models.Resource) error
	Update(ctx context.Context, id, manager primitive.ObjectID, set bson.M) (*models.Resource, error)
	Delete(ctx context.Context, id, manager primitive.ObjectID) error
}

type Handler struct {
	events    Events
	team      TeamAssigner
	notifier  Notifier
	resources Resources
	logger    *zap.Logger
	now       func() time.Time
}

func NewHandler(events Events, team TeamAssigner, notifier Notifier, resources Resources, logger *zap.Logger) *Handler {
	return &Handler{events: events, team: team, notifier: notifier, resources: resources, logger: logger, now: time.Now}
}

var defaultStatuses = []models.EventStatus{models.StatusAccepted, models.StatusInProgress, models.StatusCompleted}

const (
	defaultRadiusKm = 20
	minRadiusKm     = 5
	maxRadiusKm     = 100
)

// eventQuery builds the /events filter. Unknown statuses fall back to the
// active and completed set; malformed dates are ignored.
func eventQuery(manager primitive.ObjectID, q map[string][]string) db.EventQuery {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	eq := db.EventQuery{Manager: manager, Statuses: defaultStatuses, Type: get("type"), City: get("city")}
	if s := models.EventStatus(get("status")); s.Valid() {
		eq.Statuses = []models.EventStatus{s}
	}
	if t, err := events.ParseTime(get("dateFrom")); err == nil {
		eq.From = t
	}
	if t, err := events.ParseTime(get("dateTo")); err == nil {
		eq.To = t
	}
	return eq
}

// Events handles GET /api/manager/events?dateFrom=&dateTo=&type=&city=&status=.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.events.Query(ctx, eventQuery(utils.GetUserIDFromRequest(r), r.URL.Query()))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// monthWindow returns the first and last second of month in year, both UTC.
func monthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Second)
}

// Calendar handles GET /api/manager/events/calendar?year=&month=.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid month")
		return
	}
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil || year <= 0 {
		year = h.now().UTC().Year()
	}
	from, to := monthWindow(year, month)

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.events.Query(ctx, db.EventQuery{
		Manager:   utils.GetUserIDFromRequest(r),
		NotStatus: models.StatusCancelled,
		From:      from,
		To:        to,
	})
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

func clampRadius(raw string) float64 {
	n, err := strconv.Atoi(raw)
	if err != nil || n == 0 {
		n = defaultRadiusKm
	}
	return float64(min(maxRadiusKm, max(minRadiusKm, n)))
}

// Nearby handles GET /api/manager/events/nearby?lat=&lng=&radiusKm=. Without
// coordinates every pending event is returned in schedule order.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.events.ListPending(ctx, "")
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	if lat, lng := utils.QueryFloat(r, "lat"), utils.QueryFloat(r, "lng"); lat != nil && lng != nil {
		list = events.Nearby(list, *lat, *lng, clampRadius(r.URL.Query().Get("radiusKm")))
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// member accepts "Asha" or {"name": "Asha"}.
type member string

func (m *member) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*m = member(name)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		*m = member(obj.Name)
	}
	return nil
}

// AssignTeam handles POST /api/manager/events/:id/team {team}.
func (h *Handler) AssignTeam(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	var body struct {
		Team []member `json:"team"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	team := make([]string, len(body.Team))
	for i, m := range body.Team {
		team[i] = string(m)
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	ev, err := h.team.AssignTeam(ctx, utils.ActorFromRequest(r), id, team)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, ev)
}

// Remind handles POST /api/manager/events/:id/remind: a reminder notification
// to the calling manager about their own event.
func (h *Handler) Remind(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	caller := utils.GetUserIDFromRequest(r)
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	ev, err := h.events.FindByID(ctx, id)
	if errors.Is(err, lifecycle.ErrNotFound) {
		err = lifecycle.NotFound("Event not found")
	} else if err == nil && !ev.IsAssignedTo(caller) {
		err = lifecycle.Forbidden("Not your event")
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	n := &models.Notification{
		User:         caller,
		Type:         models.NotifyReminder,
		Title:        "Event reminder",
		Body:         fmt.Sprintf("%s - %s at %s", ev.Title, ev.ScheduledAt.Format("02 Jan 2006 15:04"), ev.Location.City),
		RelatedEvent: &ev.ID,
	}
	if err := h.notifier.Notify(ctx, n); err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Reminder set"})
}
