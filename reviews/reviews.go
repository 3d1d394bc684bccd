// Package reviews collects post-event feedback and surveys from customers and
// lets managers answer the feedback addressed to them.
package reviews

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"movment/db"
	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type EventFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
}

type Store interface {
	Insert(ctx context.Context, f *models.Feedback) error
	Exists(ctx context.Context, event, user primitive.ObjectID) (bool, error)
	ListForManager(ctx context.Context, manager primitive.ObjectID) ([]models.Feedback, error)
	Reply(ctx context.Context, id, manager primitive.ObjectID, reply string, at time.Time) (*models.Feedback, error)
	Ratings(ctx context.Context, limit int) ([]db.ManagerRating, error)
	InsertSurvey(ctx context.Context, s *models.Survey) error
	SurveyExists(ctx context.Context, event, user primitive.ObjectID) (bool, error)
}

type ActivityRecorder interface {
	Record(ctx context.Context, user primitive.ObjectID, action models.ActivityAction, entityType string, entityID *primitive.ObjectID)
}

type Handler struct {
	events   EventFinder
	store    Store
	activity ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(events EventFinder, store Store, activity ActivityRecorder, logger *zap.Logger) *Handler {
	return &Handler{events: events, store: store, activity: activity, logger: logger, now: time.Now}
}

const ratingsLimit = 50

// completedEvent loads an event the caller booked and checks it has finished.
func (h *Handler) completedEvent(ctx context.Context, id, caller primitive.ObjectID, notDone string) (*models.Event, error) {
	ev, err := h.events.FindByID(ctx, id)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, lifecycle.NotFound("Event not found")
	}
	if err != nil {
		return nil, err
	}
	if ev.BookedBy != caller {
		return nil, lifecycle.Forbidden("Forbidden")
	}
	if ev.Status != models.StatusCompleted {
		return nil, lifecycle.Invalid(notDone)
	}
	return ev, nil
}

// SubmitFeedback handles POST /api/user/events/:eventId/feedback {rating, comment}.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "eventId")
	if !ok {
		return
	}
	var body struct {
		Rating  utils.FlexFloat `json:"rating"`
		Comment string          `json:"comment"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	rating := body.Rating.Ptr()
	if rating == nil || *rating < 1 || *rating > 5 {
		utils.RespondWithError(w, http.StatusBadRequest, "Rating 1–5 required")
		return
	}

	user := utils.GetUserIDFromRequest(r)
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	ev, err := h.completedEvent(ctx, id, user, "Feedback only for completed events")
	if err == nil && ev.AssignedManager == nil {
		err = lifecycle.Invalid("No manager assigned")
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	if exists, err := h.store.Exists(ctx, ev.ID, user); err != nil || exists {
		h.respondDuplicate(w, err, "You already submitted feedback for this event")
		return
	}

	now := h.now().UTC()
	fb := &models.Feedback{
		Event:     ev.ID,
		User:      user,
		Manager:   *ev.AssignedManager,
		Rating:    int(*rating),
		Comment:   strings.TrimSpace(body.Comment),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.Insert(ctx, fb); err != nil {
		h.respondDuplicate(w, err, "You already submitted feedback for this event")
		return
	}
	h.activity.Record(ctx, user, models.ActionFeedback, "feedback", &fb.ID)
	utils.RespondWithJSON(w, http.StatusCreated, fb)
}

// respondDuplicate maps a nil error or ErrAlreadySubmitted to a 400 with msg.
func (h *Handler) respondDuplicate(w http.ResponseWriter, err error, msg string) {
	if err == nil || errors.Is(err, db.ErrAlreadySubmitted) {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}
	utils.RespondWithErr(w, h.logger, err)
}

// ManagerFeedback handles GET /api/manager/feedback.
func (h *Handler) ManagerFeedback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.store.ListForManager(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// ReplyFeedback handles PATCH /api/manager/feedback/:id/reply {reply}.
func (h *Handler) ReplyFeedback(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	var body struct {
		Reply string `json:"reply"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	fb, err := h.store.Reply(ctx, id, utils.GetUserIDFromRequest(r), strings.TrimSpace(body.Reply), h.now().UTC())
	if errors.Is(err, lifecycle.ErrNotFound) {
		err = lifecycle.NotFound("Not found")
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, fb)
}

// Ratings handles GET /api/events/ratings/aggregate: average rating per
// manager, best first.
func (h *Handler) Ratings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.store.Ratings(ctx, ratingsLimit)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}
