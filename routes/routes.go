package routes

import (
	"movment/events"
	"movment/models"
	"movment/suggestions"

	"github.com/julienschmidt/httprouter"
)

var (
	anyRole   = []string{models.RoleUser, models.RoleManager, models.RoleAdmin, models.RoleOwner}
	customers = []string{models.RoleUser, models.RoleAdmin, models.RoleOwner}
	staff     = []string{models.RoleManager, models.RoleAdmin, models.RoleOwner}
	admins    = []string{models.RoleAdmin, models.RoleOwner}
)

func AddAuthRoutes(router *httprouter.Router, g guard, h *Handlers) {
	router.POST("/api/auth/register", g.rl.Limit(h.Auth.Register))
	router.POST("/api/auth/login", g.rl.Limit(h.Auth.Login))
	router.POST("/api/auth/logout", g.as(anyRole...)(h.Auth.Logout))
}

func AddEventsRoutes(router *httprouter.Router, g guard, h *Handlers) {
	router.GET("/api/events/meta", events.Meta)
	router.GET("/api/events/suggestions", g.as(customers...)(suggestions.EventSuggestions))
	router.GET("/api/events/ratings/aggregate", g.rl.Limit(h.Reviews.Ratings))

	router.POST("/api/events", g.as(customers...)(h.Events.CreateEvent))
	router.GET("/api/events/my", g.as(anyRole...)(h.Events.MyEvents))
	router.GET("/api/events/pending", g.as(staff...)(h.Events.PendingEvents))
	router.GET("/api/events/assigned", g.as(staff...)(h.Events.AssignedEvents))

	router.POST("/api/events/:id/accept", g.as(staff...)(h.Events.AcceptEvent))
	router.POST("/api/events/:id/status", g.as(staff...)(h.Events.UpdateStatus))
	router.POST("/api/events/:id/cancel", g.as(anyRole...)(h.Events.CancelEvent))
	router.POST("/api/events/:id/reschedule", g.as(anyRole...)(h.Events.RescheduleEvent))
}
