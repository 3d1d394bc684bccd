package manager

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

var errResourceNotFound = lifecycle.NotFound("Not found")

type resourceBody struct {
	Name      *string          `json:"name"`
	Type      *string          `json:"type"`
	Quantity  *utils.FlexFloat `json:"quantity"`
	Unit      *string          `json:"unit"`
	Available *bool            `json:"available"`
}

func resourceType(t string) string {
	if slices.Contains(models.ResourceTypes, t) {
		return t
	}
	return "other"
}

func quantity(f *utils.FlexFloat, fallback int) int {
	if f == nil || f.Ptr() == nil || int(*f.Ptr()) == 0 {
		return fallback
	}
	return max(0, int(*f.Ptr()))
}

// fields is the $set for a PATCH; only known fields are writable.
func (b resourceBody) fields() bson.M {
	set := bson.M{}
	if b.Name != nil && strings.TrimSpace(*b.Name) != "" {
		set["name"] = strings.TrimSpace(*b.Name)
	}
	if b.Type != nil {
		set["type"] = resourceType(*b.Type)
	}
	if b.Quantity != nil && b.Quantity.Ptr() != nil {
		set["quantity"] = max(0, int(*b.Quantity.Ptr()))
	}
	if b.Unit != nil && strings.TrimSpace(*b.Unit) != "" {
		set["unit"] = strings.TrimSpace(*b.Unit)
	}
	if b.Available != nil {
		set["available"] = *b.Available
	}
	return set
}

// Resources handles GET /api/manager/resources.
func (h *Handler) Resources(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.resources.List(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// AddResource handles POST /api/manager/resources.
func (h *Handler) AddResource(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body resourceBody
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name required")
		return
	}

	now := h.now().UTC()
	res := &models.Resource{
		Manager:   utils.GetUserIDFromRequest(r),
		Name:      strings.TrimSpace(*body.Name),
		Type:      "other",
		Quantity:  quantity(body.Quantity, 1),
		Unit:      "pcs",
		Available: body.Available == nil || *body.Available,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if body.Type != nil {
		res.Type = resourceType(*body.Type)
	}
	if body.Unit != nil && strings.TrimSpace(*body.Unit) != "" {
		res.Unit = strings.TrimSpace(*body.Unit)
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	if err := h.resources.Insert(ctx, res); err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, res)
}

// UpdateResource handles PATCH /api/manager/resources/:id.
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	var body resourceBody
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	set := body.fields()
	set["updatedAt"] = h.now().UTC()

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	res, err := h.resources.Update(ctx, id, utils.GetUserIDFromRequest(r), set)
	if errors.Is(err, lifecycle.ErrNotFound) {
		err = errResourceNotFound
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// DeleteResource handles DELETE /api/manager/resources/:id.
func (h *Handler) DeleteResource(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	err := h.resources.Delete(ctx, id, utils.GetUserIDFromRequest(r))
	if errors.Is(err, lifecycle.ErrNotFound) {
		err = errResourceNotFound
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Deleted"})
}
