package admin

import (
	"errors"
	"net/http"
	"strings"

	"movment/db"
	"movment/events"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

type promotionRequest struct {
	Code           string          `json:"code"`
	Type           string          `json:"type"`
	Value          utils.FlexFloat `json:"value"`
	MinOrderAmount utils.FlexFloat `json:"minOrderAmount"`
	ValidFrom      string          `json:"validFrom"`
	ValidTo        string          `json:"validTo"`
	EventType      string          `json:"eventType"`
	MaxUses        *int            `json:"maxUses"`
}

// Promotions handles GET /api/admin/promotions.
func (h *Handler) Promotions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.promotions.List(ctx)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// CreatePromotion handles POST /api/admin/promotions. Codes are stored upper-case.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req promotionRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	from, ferr := events.ParseTime(req.ValidFrom)
	to, terr := events.ParseTime(req.ValidTo)
	if code == "" || ferr != nil || terr != nil || from.IsZero() || to.IsZero() {
		utils.RespondWithError(w, http.StatusBadRequest, "code, validFrom, validTo required")
		return
	}
	typ := strings.TrimSpace(req.Type)
	if typ == "" {
		typ = "percent"
	}
	if req.MaxUses != nil && *req.MaxUses <= 0 {
		req.MaxUses = nil
	}

	now := h.now().UTC()
	p := &models.Promotion{
		Code:           code,
		Type:           typ,
		Value:          req.Value.Float(),
		MinOrderAmount: req.MinOrderAmount.Float(),
		ValidFrom:      from,
		ValidTo:        to,
		EventType:      strings.TrimSpace(req.EventType),
		MaxUses:        req.MaxUses,
		Active:         true,
		CreatedBy:      utils.GetUserIDFromRequest(r),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	if err := h.promotions.Insert(ctx, p); err != nil {
		if errors.Is(err, db.ErrDuplicateCode) {
			utils.RespondWithError(w, http.StatusBadRequest, "Code already exists")
			return
		}
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, p)
}

// promotionChanges keeps only the fields an admin may edit after creation.
func promotionChanges(body map[string]any) bson.M {
	set := bson.M{}
	if v, ok := body["active"].(bool); ok {
		set["active"] = v
	}
	for _, k := range []string{"validFrom", "validTo"} {
		if s, ok := body[k].(string); ok {
			if t, err := events.ParseTime(s); err == nil {
				set[k] = t
			}
		}
	}
	if v, ok := body["maxUses"].(float64); ok {
		set["maxUses"] = int(v)
	}
	return set
}

// UpdatePromotion handles PATCH /api/admin/promotions/:id {active, validFrom, validTo, maxUses}.
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	var body map[string]any
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	set := promotionChanges(body)
	set["updatedAt"] = h.now().UTC()

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	p, err := h.promotions.Update(ctx, id, set)
	if err != nil {
		utils.RespondWithErr(w, h.logger, notFound(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

// DeletePromotion handles DELETE /api/admin/promotions/:id.
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	if err := h.promotions.Delete(ctx, id); err != nil {
		utils.RespondWithErr(w, h.logger, notFound(err))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Deleted"})
}
