package userdata

import (
	"errors"
	"net/http"

	"movment/lifecycle"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
)

// Notifications handles GET /api/user/notifications and its manager twin.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.inbox.ListForUser(ctx, utils.GetUserIDFromRequest(r), inboxSize)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// MarkRead handles PATCH /api/user/notifications/:id/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	n, err := h.inbox.MarkRead(ctx, id, utils.GetUserIDFromRequest(r), h.now().UTC())
	if errors.Is(err, lifecycle.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, n)
}

// MarkAllRead handles POST /api/user/notifications/read-all.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	if _, err := h.inbox.MarkAllRead(ctx, utils.GetUserIDFromRequest(r), h.now().UTC()); err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "All marked as read"})
}
