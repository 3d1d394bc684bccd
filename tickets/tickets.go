// Package tickets runs the customer support desk: customers open tickets and
// reply, admins triage and answer.
package tickets

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Store interface {
	Insert(ctx context.Context, t *models.SupportTicket) error
	ListForUser(ctx context.Context, user primitive.ObjectID) ([]models.SupportTicket, error)
	List(ctx context.Context, category string, status models.TicketStatus) ([]models.SupportTicket, error)
	Find(ctx context.Context, id, owner primitive.ObjectID) (*models.SupportTicket, error)
	Update(ctx context.Context, id, owner primitive.ObjectID, status models.TicketStatus, reply *models.TicketReply, at time.Time) (*models.SupportTicket, error)
}

type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

type ActivityRecorder interface {
	Record(ctx context.Context, user primitive.ObjectID, action models.ActivityAction, entityType string, entityID *primitive.ObjectID)
}

type Handler struct {
	store    Store
	notifier Notifier
	activity ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(store Store, notifier Notifier, activity ActivityRecorder, logger *zap.Logger) *Handler {
	return &Handler{store: store, notifier: notifier, activity: activity, logger: logger, now: time.Now}
}

var errTicketNotFound = lifecycle.NotFound("Not found")

type createRequest struct {
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	Category       string `json:"category"`
	RelatedEventID string `json:"relatedEventId"`
}

func (c createRequest) ticket(user primitive.ObjectID, now time.Time) (*models.SupportTicket, error) {
	subject, message := strings.TrimSpace(c.Subject), strings.TrimSpace(c.Message)
	if subject == "" || message == "" {
		return nil, lifecycle.Invalid("Subject and message required")
	}
	category := c.Category
	if category == "" {
		category = "query"
	}
	if !slices.Contains(models.TicketCategories, category) {
		return nil, lifecycle.Invalid("Invalid category")
	}
	t := &models.SupportTicket{
		User:      user,
		Subject:   subject,
		Message:   message,
		Status:    models.TicketOpen,
		Category:  category,
		Replies:   []models.TicketReply{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.RelatedEventID != "" {
		id, err := primitive.ObjectIDFromHex(c.RelatedEventID)
		if err != nil {
			return nil, lifecycle.Invalid("Invalid relatedEventId")
		}
		t.RelatedEvent = &id
	}
	return t, nil
}

// Create handles POST /api/user/support.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}
	user := utils.GetUserIDFromRequest(r)
	t, err := req.ticket(user, h.now().UTC())
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	if err := h.store.Insert(ctx, t); err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	h.activity.Record(ctx, user, models.ActionSupportTicket, "supportticket", &t.ID)
	utils.RespondWithJSON(w, http.StatusCreated, t)
}

// ListMine handles GET /api/user/support.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.store.ListForUser(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GetMine handles GET /api/user/support/:id.
func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	t, err := h.store.Find(ctx, id, utils.GetUserIDFromRequest(r))
	h.respond(w, t, err)
}

// ReplyMine handles POST /api/user/support/:id/reply {message}.
func (h *Handler) ReplyMine(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	var body struct {
		Message string `json:"message"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	msg := strings.TrimSpace(body.Message)
	if msg == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Message required")
		return
	}

	now := h.now().UTC()
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	t, err := h.store.Update(ctx, id, utils.GetUserIDFromRequest(r), "", &models.TicketReply{From: models.FromUser, Message: msg, At: now}, now)
	h.respond(w, t, err)
}

func (h *Handler) respond(w http.ResponseWriter, t *models.SupportTicket, err error) {
	if errors.Is(err, lifecycle.ErrNotFound) {
		err = errTicketNotFound
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, t)
}
