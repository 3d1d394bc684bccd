package tickets

import (
	"fmt"
	"net/http"
	"strings"

	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// List handles GET /api/admin/support-tickets?category=&status=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.store.List(ctx, q.Get("category"), models.TicketStatus(q.Get("status")))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// Answer handles PATCH /api/admin/support-tickets/:id {status, reply}. A reply
// is also sent to the customer as a support_reply notification.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	var body struct {
		Status models.TicketStatus `json:"status"`
		Reply  string              `json:"reply"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	if body.Status != "" && !body.Status.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	now := h.now().UTC()
	var reply *models.TicketReply
	if text := strings.TrimSpace(body.Reply); text != "" {
		reply = &models.TicketReply{From: models.FromSupport, Message: text, At: now}
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	t, err := h.store.Update(ctx, id, primitive.NilObjectID, body.Status, reply, now)
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	if reply != nil {
		n := &models.Notification{
			User:  t.User,
			Type:  models.NotifySupportReply,
			Title: "Support replied",
			Body:  fmt.Sprintf("New reply on \"%s\".", t.Subject),
			Link:  "/support/" + t.ID.Hex(),
		}
		if err := h.notifier.Notify(ctx, n); err != nil {
			h.logger.Warn("support reply notification", zap.String("ticket", t.ID.Hex()), zap.Error(err))
		}
	}
	h.respond(w, t, nil)
}
