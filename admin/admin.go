// Package admin serves the back office: account roles, manager onboarding,
// the global event list, broadcasts, promotions and the audit trail.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"movment/activity"
	"movment/db"
	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Users interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	List(ctx context.Context, filter bson.M) ([]models.User, error)
	IDs(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error)
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error)
	SetRoleIf(ctx context.Context, id primitive.ObjectID, from, to string, approved bool, at time.Time) (*models.User, error)
}

type Requests interface {
	List(ctx context.Context, status models.ManagerRequestStatus) ([]models.ManagerRequest, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ManagerRequest, error)
	Resolve(ctx context.Context, id primitive.ObjectID, status models.ManagerRequestStatus, by primitive.ObjectID, at time.Time) (*models.ManagerRequest, error)
}

type Events interface {
	Query(ctx context.Context, q db.EventQuery) ([]models.Event, error)
}

type Promotions interface {
	List(ctx context.Context) ([]models.Promotion, error)
	Insert(ctx context.Context, p *models.Promotion) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Promotion, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type Broadcaster interface {
	NotifyMany(ctx context.Context, users []primitive.ObjectID, tmpl models.Notification) (int, error)
}

type AuditLog interface {
	List(ctx context.Context, f activity.Filter) ([]models.UserActivity, error)
}

type Handler struct {
	users      Users
	requests   Requests
	events     Events
	promotions Promotions
	notifier   Broadcaster
	audit      AuditLog
	logger     *zap.Logger
	now        func() time.Time
}

func NewHandler(users Users, requests Requests, events Events, promotions Promotions, notifier Broadcaster, audit AuditLog, logger *zap.Logger) *Handler {
	return &Handler{
		users:      users,
		requests:   requests,
		events:     events,
		promotions: promotions,
		notifier:   notifier,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request, filter bson.M) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	list, err := h.users.List(ctx, filter)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// Users handles GET /api/admin/users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.listUsers(w, r, bson.M{})
}

// Managers handles GET /api/admin/managers.
func (h *Handler) Managers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.listUsers(w, r, bson.M{"role": models.RoleManager})
}

// PendingManagers handles GET /api/admin/pending-managers.
func (h *Handler) PendingManagers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.listUsers(w, r, bson.M{"role": models.RoleManager, "approved": bson.M{"$ne": true}})
}

// notFound names a missing document the way the back office reports it.
func notFound(err error) error {
	if errors.Is(err, lifecycle.ErrNotFound) {
		return lifecycle.NotFound("Not found")
	}
	return err
}

func brief(u *models.User) utils.M {
	return utils.M{"id": u.ID, "name": u.Name, "email": u.Email, "role": u.Role, "approved": u.Approved}
}

// target loads the user named by :id, refusing to touch the owner account.
func (h *Handler) target(ctx context.Context, id primitive.ObjectID, guardOwner bool) (*models.User, error) {
	u, err := h.users.FindByID(ctx, id)
	if errors.Is(err, lifecycle.ErrNotFound) {
		return nil, lifecycle.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	if guardOwner && u.Role == models.RoleOwner {
		return nil, lifecycle.Forbidden("Cannot change the owner's role")
	}
	return u, nil
}

// ApproveManager handles POST /api/admin/managers/:id/approve.
func (h *Handler) ApproveManager(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	u, err := h.target(ctx, id, false)
	if err == nil && u.Role != models.RoleManager {
		err = lifecycle.Invalid("User is not a manager")
	}
	if err == nil {
		u, err = h.users.UpdateFields(ctx, id, bson.M{"approved": true, "updatedAt": h.now().UTC()})
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Manager approved", "user": brief(u)})
}

// changeRole moves a manager to another role. A concurrent change between the
// read and the write surfaces as notManager.
func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params, to string, approved bool, notManager, done string) {
	id, ok := utils.ObjectIDParam(w, ps, "id")
	if !ok {
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	u, err := h.target(ctx, id, true)
	if err == nil && u.Role != models.RoleManager {
		err = lifecycle.Invalid(notManager)
	}
	if err == nil {
		u, err = h.users.SetRoleIf(ctx, id, models.RoleManager, to, approved, h.now().UTC())
		if errors.Is(err, lifecycle.ErrConflict) {
			err = lifecycle.Invalid(notManager)
		}
	}
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	h.logger.Info("role changed", zap.String("user", id.Hex()), zap.String("role", to),
		zap.String("by", utils.GetUserIDFromRequest(r).Hex()))
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": done, "user": brief(u)})
}

// PromoteAdmin handles POST /api/admin/users/:id/promote-admin.
func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.changeRole(w, r, ps, models.RoleAdmin, true, "Only managers can be promoted to admin", "Promoted to admin")
}

// RemoveManager handles POST /api/admin/managers/:id/remove.
func (h *Handler) RemoveManager(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.changeRole(w, r, ps, models.RoleUser, false, "User is not a manager", "Manager removed")
}
