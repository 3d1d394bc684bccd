package analytics

import (
	"context"
	"net/http"
	"time"

	"movment/utils"

	"github.com/julienschmidt/httprouter"
)

type Report struct {
	Period        string    `json:"period"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Revenue       float64   `json:"revenue"`
	Bookings      int64     `json:"bookings"`
	Cancelled     int64     `json:"cancelled"`
	FeedbackCount int       `json:"feedbackCount"`
	AvgRating     float64   `json:"avgRating"`
}

func (h *Handler) report(ctx context.Context, from time.Time) (Report, error) {
	rep := Report{Start: from, End: h.now().UTC()}
	revenue, err := h.store.Revenue(ctx, from)
	if err != nil {
		return rep, err
	}
	live, cancelled, err := h.store.Bookings(ctx, from)
	if err != nil {
		return rep, err
	}
	ratings, err := h.store.Ratings(ctx, from)
	if err != nil {
		return rep, err
	}
	rep.Revenue = round2(revenue)
	rep.Bookings, rep.Cancelled = live, cancelled
	rep.FeedbackCount, rep.AvgRating = ratings.Count, round2(ratings.Avg)
	return rep, nil
}

// Reports handles GET /api/admin/analytics/reports?period=week|month. A week
// is the trailing seven days; anything else is month to date.
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	period, key := "month", keyReportMonth
	from := startOfMonth(h.now())
	if r.URL.Query().Get("period") == "week" {
		period, key = "week", keyReportWeek
		from = h.now().UTC().AddDate(0, 0, -7)
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	rep, err := cached(ctx, h, key, func(ctx context.Context) (Report, error) {
		rep, err := h.report(ctx, from)
		rep.Period = period
		return rep, err
	})
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rep)
}
