package manager

import (
	"math"
	"net/http"

	"movment/db"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
)

type Performance struct {
	Total          int                        `json:"total"`
	Completed      int                        `json:"completed"`
	CompletionRate int                        `json:"completionRate"`
	ByStatus       map[models.EventStatus]int `json:"byStatus"`
}

// Summarize counts evs by status. CompletionRate is a whole percentage.
func Summarize(evs []models.Event) Performance {
	p := Performance{Total: len(evs), ByStatus: map[models.EventStatus]int{}}
	for _, s := range models.EventStatuses {
		p.ByStatus[s] = 0
	}
	for _, ev := range evs {
		p.ByStatus[ev.Status]++
		if ev.Status == models.StatusCompleted {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.CompletionRate = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
	}
	return p
}

// Performance handles GET /api/manager/performance.
func (h *Handler) Performance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	evs, err := h.events.Query(ctx, db.EventQuery{Manager: utils.GetUserIDFromRequest(r)})
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, Summarize(evs))
}
