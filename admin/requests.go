package admin

import (
	"context"
	"errors"
	"net/http"

	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ManagerRequests handles GET /api/admin/manager-requests?status=, pending by default.
func (h *Handler) ManagerRequests(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := models.ManagerRequestStatus(r.URL.Query().Get("status"))
	switch status {
	case models.RequestPending, models.RequestApproved, models.RequestRejected:
	default:
		status = models.RequestPending
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.requests.List(ctx, status)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// ApproveRequest handles POST /api/admin/manager-requests/:id/approve. The
// applicant becomes an approved manager only while still a plain user.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	req, err := h.pendingRequest(ctx, id)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	u, err := h.users.SetRoleIf(ctx, req.User, models.RoleUser, models.RoleManager, true, h.now().UTC())
	if errors.Is(err, lifecycle.ErrConflict) {
		if _, ferr := h.users.FindByID(ctx, req.User); errors.Is(ferr, lifecycle.ErrNotFound) {
			err = lifecycle.NotFound("User not found")
		} else {
			err = lifecycle.Invalid("User role has changed")
		}
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	if _, err := h.requests.Resolve(ctx, id, models.RequestApproved, utils.GetUserIDFromRequest(r), h.now().UTC()); err != nil {
		h.logger.Warn("close manager request", zap.String("request", id.Hex()), zap.Error(err))
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Manager request approved", "user": brief(u)})
}

// RejectRequest handles POST /api/admin/manager-requests/:id/reject.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	_, err := h.pendingRequest(ctx, id)
	if err == nil {
		_, err = h.requests.Resolve(ctx, id, models.RequestRejected, utils.GetUserIDFromRequest(r), h.now().UTC())
		if errors.Is(err, lifecycle.ErrConflict) {
			err = lifecycle.Invalid("Request already processed")
		}
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Manager request rejected"})
}

func (h *Handler) pendingRequest(ctx context.Context, id primitive.ObjectID) (*models.ManagerRequest, error) {
	req, err := h.requests.FindByID(ctx, id)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, lifecycle.NotFound("Request not found")
	}
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		return nil, lifecycle.Invalid("Request already processed")
	}
	return req, nil
}
