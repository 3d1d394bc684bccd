package events

import (
	"net/http"

	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
)

// AcceptEvent handles POST /api/events/:id/accept.
func (h *Handler) AcceptEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	h.respond(w, func() (*models.Event, error) {
		return h.svc.Accept(ctx, utils.ActorFromRequest(r), id)
	})
}

// UpdateStatus handles POST /api/events/:id/status {status}.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	var body struct {
		Status models.EventStatus `json:"status"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	h.respond(w, func() (*models.Event, error) {
		return h.svc.Advance(ctx, utils.ActorFromRequest(r), id, body.Status)
	})
}

// CancelEvent handles POST /api/events/:id/cancel.
func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	h.respond(w, func() (*models.Event, error) {
		return h.svc.Cancel(ctx, utils.ActorFromRequest(r), id)
	})
}

// RescheduleEvent handles POST /api/events/:id/reschedule {scheduledAt}.
func (h *Handler) RescheduleEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	var body struct {
		ScheduledAt string `json:"scheduledAt"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	when, err := ParseTime(body.ScheduledAt)
	if err != nil {
		utils.RespondWithErr(w, h.logger, lifecycle.Invalid("Invalid date"))
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	h.respond(w, func() (*models.Event, error) {
		return h.svc.Reschedule(ctx, utils.ActorFromRequest(r), id, when)
	})
}

func (h *Handler) respond(w http.ResponseWriter, op func() (*models.Event, error)) {
	ev, err := op()
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, ev)
}
