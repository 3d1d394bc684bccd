// Package events exposes the booking lifecycle over HTTP.
package events

import (
	"context"
	"net/http"

	"movment/lifecycle"
	"movment/models"
	"movment/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Lister is the read side of the event store.
type Lister interface {
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Event, error)
	ListPending(ctx context.Context, city string) ([]models.Event, error)
	ListAssigned(ctx context.Context, manager primitive.ObjectID) ([]models.Event, error)
}

type Handler struct {
	svc    *lifecycle.Service
	events Lister
	logger *zap.Logger
}

func NewHandler(svc *lifecycle.Service, events Lister, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, events: events, logger: logger}
}

// Meta handles GET /api/events/meta.
func Meta(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"eventTypes":         models.EventTypes,
		"additionalServices": models.AdditionalServices,
	})
}
