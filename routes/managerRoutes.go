package routes

import (
	"movment/chats"

	"github.com/julienschmidt/httprouter"
)

func AddManagerRoutes(router *httprouter.Router, g guard, h *Handlers) {
	auth := g.as(staff...)

	router.GET("/api/manager/events", auth(h.Manager.Events))
	router.GET("/api/manager/events/calendar", auth(h.Manager.Calendar))
	router.GET("/api/manager/events/nearby", auth(h.Manager.Nearby))
	router.POST("/api/manager/events/:id/team", auth(h.Manager.AssignTeam))
	router.POST("/api/manager/events/:id/remind", auth(h.Manager.Remind))

	router.GET("/api/manager/notifications", auth(h.UserData.Notifications))

	router.GET("/api/manager/conversations", auth(h.Chats.List(chats.Manager)))
	router.POST("/api/manager/conversations", auth(h.Chats.Start))
	router.GET("/api/manager/conversations/:id/messages", auth(h.Chats.Messages(chats.Manager)))
	router.POST("/api/manager/conversations/:id/messages", auth(h.Chats.Send(chats.Manager)))

	router.GET("/api/manager/resources", auth(h.Manager.Resources))
	router.POST("/api/manager/resources", auth(h.Manager.AddResource))
	router.PATCH("/api/manager/resources/:id", auth(h.Manager.UpdateResource))
	router.DELETE("/api/manager/resources/:id", auth(h.Manager.DeleteResource))

	router.GET("/api/manager/performance", auth(h.Manager.Performance))
	router.GET("/api/manager/feedback", auth(h.Reviews.ManagerFeedback))
	router.PATCH("/api/manager/feedback/:id/reply", auth(h.Reviews.ReplyFeedback))
	router.PATCH("/api/manager/me/location", auth(h.Profile.UpdateLocation))
}
