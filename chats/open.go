package chats

import (
	"errors"
	"net/http"

	"movment/db"
	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const noConversationYet = "No conversation for this event yet. A manager will start the chat once assigned."

// ForEvent handles GET /api/user/events/:eventId/conversation. The
// conversation is created on first request once a manager is assigned.
func (h *Handler) ForEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	eventID, ok := utils.ObjectIDParam(w, ps, "eventId")
	if !ok {
		return
	}
	caller := utils.GetUserIDFromRequest(r)
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	ev, err := h.events.FindByID(ctx, eventID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		err = lifecycle.NotFound("Event not found")
	} else if err == nil && ev.BookedBy != caller {
		err = lifecycle.Forbidden("Forbidden")
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	party := db.Party{User: caller}
	c, err := h.store.FindForEvent(ctx, eventID, party)
	if errors.Is(err, lifecycle.ErrNotFound) {
		if ev.AssignedManager == nil {
			utils.RespondWithError(w, http.StatusNotFound, noConversationYet)
			return
		}
		c, err = h.store.Open(ctx, eventID, party, h.seed(ev, *ev.AssignedManager))
	}
	h.respond(w, c, err)
}

// Start handles POST /api/manager/conversations {eventId}: get or create the
// conversation for an event assigned to the caller.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		EventID string `json:"eventId"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	if body.EventID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "eventId required")
		return
	}
	eventID, err := primitive.ObjectIDFromHex(body.EventID)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Event not found")
		return
	}

	caller := utils.GetUserIDFromRequest(r)
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	ev, err := h.events.FindByID(ctx, eventID)
	if errors.Is(err, lifecycle.ErrNotFound) {
		err = lifecycle.NotFound("Event not found")
	} else if err == nil && (ev.AssignedManager == nil || *ev.AssignedManager != caller) {
		err = lifecycle.Forbidden("Not your event")
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	c, err := h.store.Open(ctx, eventID, db.Party{Manager: caller}, h.seed(ev, caller))
	h.respond(w, c, err)
}

func (h *Handler) seed(ev *models.Event, manager primitive.ObjectID) models.ManagerConversation {
	return models.ManagerConversation{
		Event:     ev.ID,
		User:      ev.BookedBy,
		Manager:   manager,
		CreatedAt: h.now().UTC(),
	}
}
