package routes

import (
	"movment/chats"
	"movment/suggestions"

	"github.com/julienschmidt/httprouter"
)

func AddUserRoutes(router *httprouter.Router, g guard, h *Handlers) {
	auth := g.as(anyRole...)

	router.POST("/api/user/request-manager", auth(h.UserData.RequestManager))
	router.GET("/api/user/manager-request", auth(h.UserData.ManagerRequest))

	router.GET("/api/user/profile", auth(h.Profile.GetProfile))
	router.PATCH("/api/user/profile", auth(h.Profile.UpdateProfile))
	router.POST("/api/user/profile/picture", auth(h.Profile.UploadPicture))

	router.GET("/api/user/notifications", auth(h.UserData.Notifications))
	router.POST("/api/user/notifications/read-all", auth(h.UserData.MarkAllRead))
	router.PATCH("/api/user/notifications/:id/read", auth(h.UserData.MarkRead))

	router.POST("/api/user/support", auth(h.Tickets.Create))
	router.GET("/api/user/support", auth(h.Tickets.ListMine))
	router.GET("/api/user/support/:id", auth(h.Tickets.GetMine))
	router.POST("/api/user/support/:id/reply", auth(h.Tickets.ReplyMine))

	router.GET("/api/user/invoice/:eventId", auth(h.Invoice.Get))

	router.POST("/api/user/events/:eventId/feedback", auth(h.Reviews.SubmitFeedback))
	router.GET("/api/user/survey/questions", suggestions.GetSurveyQuestions)
	router.POST("/api/user/events/:eventId/survey", auth(h.Reviews.SubmitSurvey))

	router.GET("/api/user/conversations", auth(h.Chats.List(chats.Customer)))
	router.GET("/api/user/events/:eventId/conversation", auth(h.Chats.ForEvent))
	router.GET("/api/user/conversations/:id/messages", auth(h.Chats.Messages(chats.Customer)))
	router.POST("/api/user/conversations/:id/messages", auth(h.Chats.Send(chats.Customer)))

	router.GET("/api/user/faq", suggestions.GetFAQ)
}
