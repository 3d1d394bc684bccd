// Package chats serves the per-event conversation between a customer and the
// manager assigned to their event. Admins can read every conversation.
package chats

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

// ActionMessage is the live push sent to the other participant.
const ActionMessage = "conversation_message"

type Store interface {
	List(ctx context.Context, p db.Party) ([]models.ManagerConversation, error)
	Find(ctx context.Context, id primitive.ObjectID, p db.Party) (*models.ManagerConversation, error)
	FindForEvent(ctx context.Context, event primitive.ObjectID, p db.Party) (*models.ManagerConversation, error)
	Open(ctx context.Context, event primitive.ObjectID, p db.Party, seed models.ManagerConversation) (*models.ManagerConversation, error)
	Append(ctx context.Context, id primitive.ObjectID, p db.Party, msg models.ConversationMessage) (*models.ManagerConversation, error)
}

type EventFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
}

type Pusher interface {
	Push(userID primitive.ObjectID, action string, data any)
}

type ActivityRecorder interface {
	Record(ctx context.Context, user primitive.ObjectID, action models.ActivityAction, entityType string, entityID *primitive.ObjectID)
}

// Side is the participant a route acts as.
type Side int

const (
	Customer Side = iota
	Manager
	Admin
)

func (s Side) party(caller primitive.ObjectID) db.Party {
	switch s {
	case Customer:
		return db.Party{User: caller}
	case Manager:
		return db.Party{Manager: caller}
	}
	return db.Party{}
}

func (s Side) from() string {
	if s == Manager {
		return models.FromManager
	}
	return models.FromUser
}

type Handler struct {
	store    Store
	events   EventFinder
	live     Pusher
	activity ActivityRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(store Store, events EventFinder, live Pusher, activity ActivityRecorder, logger *zap.Logger) *Handler {
	return &Handler{store: store, events: events, live: live, activity: activity, logger: logger, now: time.Now}
}

var errConversationNotFound = lifecycle.NotFound("Not found")

func (h *Handler) respond(w http.ResponseWriter, v any, err error) {
	if errors.Is(err, lifecycle.ErrNotFound) {
		err = errConversationNotFound
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, v)
}

// List returns the conversations side takes part in, most recently active first.
func (h *Handler) List(side Side) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := utils.RequestContext(r)
		defer cancel()
		list, err := h.store.List(ctx, side.party(utils.GetUserIDFromRequest(r)))
		h.respond(w, list, err)
	}
}

// Messages returns the message log of one conversation.
func (h *Handler) Messages(side Side) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := utils.ObjectIDParam(w, ps, "id")
		if !ok {
			return
		}
		ctx, cancel := utils.RequestContext(r)
		defer cancel()
		c, err := h.store.Find(ctx, id, side.party(utils.GetUserIDFromRequest(r)))
		if err != nil {
			h.respond(w, nil, err)
			return
		}
		h.respond(w, messagesOf(c), nil)
	}
}

// Send appends {text} to a conversation and pushes it to the other side.
func (h *Handler) Send(side Side) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := utils.ObjectIDParam(w, ps, "id")
		if !ok {
			return
		}
		var body struct {
			Text string `json:"text"`
		}
		if !utils.DecodeJSON(w, r, &body) {
			return
		}
		text := strings.TrimSpace(body.Text)
		if text == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "Message required")
			return
		}

		caller := utils.GetUserIDFromRequest(r)
		msg := models.ConversationMessage{From: side.from(), Text: text, At: h.now().UTC()}
		ctx, cancel := utils.RequestContext(r)
		defer cancel()
		c, err := h.store.Append(ctx, id, side.party(caller), msg)
		if err != nil {
			h.respond(w, nil, err)
			return
		}

		to := c.Manager
		if side == Manager {
			to = c.User
		}
		h.live.Push(to, ActionMessage, map[string]any{
			"conversationId": c.ID,
			"eventId":        c.Event,
			"message":        msg,
		})
		h.activity.Record(ctx, caller, models.ActionChatMessage, "conversation", &c.ID)
		h.respond(w, messagesOf(c), nil)
	}
}

func messagesOf(c *models.ManagerConversation) []models.ConversationMessage {
	if c.Messages == nil {
		return []models.ConversationMessage{}
	}
	return c.Messages
}
