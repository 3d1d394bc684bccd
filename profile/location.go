package profile

import (
	"net/http"

	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// UpdateLocation handles PATCH /api/manager/me/location {lat, lng}. The
// coordinates feed the nearby view.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	set := bson.M{"updatedAt": h.now().UTC()}
	if body.Lat != nil {
		set["location.coordinates.lat"] = *body.Lat
	}
	if body.Lng != nil {
		set["location.coordinates.lng"] = *body.Lng
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	updated, err := h.users.UpdateFields(ctx, utils.GetUserIDFromRequest(r), set)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated.Location)
}
