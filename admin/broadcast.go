package admin

import (
	"fmt"
	"net/http"
	"strings"

	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type sendRequest struct {
	UserIDs        []string `json:"userIds"`
	ManagerIDs     []string `json:"managerIds"`
	Broadcast      bool     `json:"broadcast"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	Type           string   `json:"type"`
	RelatedEventID string   `json:"relatedEventId"`
}

func parseIDs(raw []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		if id, err := primitive.ObjectIDFromHex(strings.TrimSpace(s)); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// recipients resolves the union of explicit users, verified managers and,
// for a broadcast, every account. Each user appears once.
func (h *Handler) recipients(r *http.Request, req sendRequest) ([]primitive.ObjectID, error) {
	ctx, cancel := utils.RequestContext(r)
	defer cancel()

	var all []primitive.ObjectID
	if req.Broadcast {
		ids, err := h.users.IDs(ctx, bson.M{})
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
	}
	all = append(all, parseIDs(req.UserIDs)...)
	if managers := parseIDs(req.ManagerIDs); len(managers) > 0 {
		ids, err := h.users.IDs(ctx, bson.M{"_id": bson.M{"$in": managers}, "role": models.RoleManager})
		if err != nil {
			return nil, err
		}
		all = append(all, ids...)
	}

	seen := make(map[primitive.ObjectID]bool, len(all))
	out := all[:0]
	for _, id := range all {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// SendNotification handles POST /api/admin/notifications/send.
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req sendRequest
	if !utils.DecodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "title required")
		return
	}
	typ := models.NotifyGeneral
	if req.Type != "" {
		typ = models.NotificationType(req.Type)
	}
	if !typ.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid type")
		return
	}
	tmpl := models.Notification{Type: typ, Title: req.Title, Body: strings.TrimSpace(req.Body)}
	if id, err := primitive.ObjectIDFromHex(req.RelatedEventID); err == nil {
		tmpl.RelatedEvent = &id
	}

	users, err := h.recipients(r, req)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	ctx, cancel := utils.RequestContext(r)
	defer cancel()
	n, err := h.notifier.NotifyMany(ctx, users, tmpl)
	if err != nil {
		utils.RespondWithErr(w, h.logger, err)
		return
	}
	h.logger.Info("admin notification sent", zap.Int("count", n), zap.String("type", string(typ)))
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": fmt.Sprintf("Sent to %d user(s)", n), "count": n})
}
