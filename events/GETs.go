package events

import (
	"net/http"
	"strings"

	"movment/utils"

	"github.com/julienschmidt/httprouter"
)

// MyEvents handles GET /api/events/my, newest booking first.
func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	evs, err := h.events.ListByOwner(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, evs)
}

// PendingEvents handles GET /api/events/pending?city=&lat=&lng=&radiusKm=.
// With all three geo parameters the result is distance-filtered and sorted
// nearest first; otherwise it is ordered by schedule.
func (h *Handler) PendingEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	evs, err := h.events.ListPending(ctx, strings.TrimSpace(r.URL.Query().Get("city")))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	lat, lng, radius := utils.QueryFloat(r, "lat"), utils.QueryFloat(r, "lng"), utils.QueryFloat(r, "radiusKm")
	if lat != nil && lng != nil && radius != nil {
		evs = Nearby(evs, *lat, *lng, *radius)
	}
	utils.RespondWithJSON(w, http.StatusOK, evs)
}

// AssignedEvents handles GET /api/events/assigned.
func (h *Handler) AssignedEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	evs, err := h.events.ListAssigned(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, evs)
}
