package pay

import (
	"errors"
	"net/http"
	"strings"

	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListRefunds handles GET /api/admin/refunds?status=.
func (h *Handler) ListRefunds(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.refunds.List(ctx, models.RefundStatus(r.URL.Query().Get("status")))
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

type refundRequest struct {
	EventID   string          `json:"eventId"`
	UserID    string          `json:"userId"`
	PaymentID string          `json:"paymentId"`
	Amount    utils.FlexFloat `json:"amount"`
	Reason    string          `json:"reason"`
}

// CreateRefund handles POST /api/admin/refunds. Refunds start pending.
func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req refundRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}
	amount := req.Amount.Ptr()
	if req.EventID == "" || req.UserID == "" || amount == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "eventId, userId, amount required")
		return
	}
	eventID, errE := primitive.ObjectIDFromHex(req.EventID)
	userID, errU := primitive.ObjectIDFromHex(req.UserID)
	if errE != nil || errU != nil || *amount < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid refund")
		return
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	if _, err := h.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, lifecycle.ErrNotFound) {
			err = errEventNotFound
		}
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	now := h.now().UTC()
	rf := &models.Refund{
		Event:     eventID,
		User:      userID,
		Amount:    *amount,
		Reason:    strings.TrimSpace(req.Reason),
		Status:    models.RefundPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.PaymentID != "" {
		pid, err := primitive.ObjectIDFromHex(req.PaymentID)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid refund")
			return
		}
		rf.Payment = &pid
	}
	if err := h.refunds.Insert(ctx, rf); err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, rf)
}

// DecideRefund handles PATCH /api/admin/refunds/:id {status, adminNote}.
func (h *Handler) DecideRefund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	var body struct {
		Status    models.RefundStatus `json:"status"`
		AdminNote string              `json:"adminNote"`
	}
	if !utils.DecodeJSON(w, r, &body) {
		return
	}
	switch body.Status {
	case models.RefundApproved, models.RefundProcessed, models.RefundRejected:
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	rf, err := h.refunds.Decide(ctx, id, body.Status, strings.TrimSpace(body.AdminNote), utils.GetUserIDFromRequest(r), h.now().UTC())
	if errors.Is(err, lifecycle.ErrNotFound) {
		err = lifecycle.NotFound("Not found")
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rf)
}
