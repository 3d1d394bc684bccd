package events

import (
	"net/http"

	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
)

type createRequest struct {
	Type               string          `json:"type"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	ScheduledAt        string          `json:"scheduledAt"`
	AddressLine        string          `json:"addressLine"`
	City               string          `json:"city"`
	Pincode            string          `json:"pincode"`
	Landmark           string          `json:"landmark"`
	Lat                utils.FlexFloat `json:"lat"`
	Lng                utils.FlexFloat `json:"lng"`
	MapLink            string          `json:"mapLink"`
	GuestCount         flexInt         `json:"guestCount"`
	Venue              string          `json:"venue"`
	AdditionalServices []serviceEntry  `json:"additionalServices"`
	CustomRequests     string          `json:"customRequests"`
}

func (c createRequest) input() (lifecycle.CreateInput, error) {
	when, err := ParseTime(c.ScheduledAt)
	if err != nil {
		return lifecycle.CreateInput{}, lifecycle.Invalid("Invalid scheduledAt")
	}
	services := make([]models.ServiceRequest, len(c.AdditionalServices))
	for i, s := range c.AdditionalServices {
		services[i] = models.ServiceRequest(s)
	}
	return lifecycle.CreateInput{
		Type:               c.Type,
		Title:              c.Title,
		Description:        c.Description,
		ScheduledAt:        when,
		AddressLine:        c.AddressLine,
		City:               c.City,
		Pincode:            c.Pincode,
		Landmark:           c.Landmark,
		Lat:                c.Lat.Ptr(),
		Lng:                c.Lng.Ptr(),
		MapLink:            c.MapLink,
		GuestCount:         int(c.GuestCount),
		Venue:              c.Venue,
		AdditionalServices: services,
		CustomRequests:     c.CustomRequests,
	}, nil
}

// CreateEvent handles POST /api/events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	ev, err := h.svc.Create(ctx, utils.ActorFromRequest(r), in)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, ev)
}
