// Package userdata serves the per-user inbox and the manager-role application.
package userdata

import (
	"context"
	"errors"
	"net/http"
	"time"

	"movment/db"
	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const inboxSize = 50

type Requests interface {
	Insert(ctx context.Context, req *models.ManagerRequest) error
	Pending(ctx context.Context, user primitive.ObjectID) (*models.ManagerRequest, error)
	Latest(ctx context.Context, user primitive.ObjectID) (*models.ManagerRequest, error)
}

type Inbox interface {
	ListForUser(ctx context.Context, user primitive.ObjectID, limit int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, user primitive.ObjectID, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, user primitive.ObjectID, at time.Time) (int64, error)
}

type Handler struct {
	requests Requests
	inbox    Inbox
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(requests Requests, inbox Inbox, logger *zap.Logger) *Handler {
	return &Handler{requests: requests, inbox: inbox, logger: logger, now: time.Now}
}

// RequestManager handles POST /api/user/request-manager.
func (h *Handler) RequestManager(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user := utils.UserFromRequest(r)
	if user.IsStaff() {
		utils.RespondWithError(w, http.StatusBadRequest, "You already have a manager or higher role")
		return
	}

	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	_, err := h.requests.Pending(ctx, user.ID)
	switch {
	case err == nil:
		utils.RespondWithError(w, http.StatusBadRequest, "You already have a pending manager request")
		return
	case !errors.Is(err, lifecycle.ErrNotFound):
		utils.RespondWithErr(w, h.logger, err)
		return
	}

	now := h.now().UTC()
	req := &models.ManagerRequest{User: user.ID, Status: models.RequestPending, CreatedAt: now, UpdatedAt: now}
	if err := h.requests.Insert(ctx, req); err != nil {
		if errors.Is(err, db.ErrRequestPending) {
			utils.RespondWithError(w, http.StatusBadRequest, "You already have a pending manager request")
			return
		}
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message": "Request sent. Admin will review it.",
		"request": utils.M{"id": req.ID, "status": req.Status},
	})
}

// ManagerRequest handles GET /api/user/manager-request. It answers null when
// the user never applied.
func (h *Handler) ManagerRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	req, err := h.requests.Latest(ctx, utils.GetUserIDFromRequest(r))
	if errors.Is(err, lifecycle.ErrNotFound) {
		utils.RespondWithJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, req)
}
