package routes

import (
	"movment/chats"

	"github.com/julienschmidt/httprouter"
)

func AddAdminRoutes(router *httprouter.Router, g guard, h *Handlers) {
	auth := g.as(admins...)

	router.GET("/api/admin/users", auth(h.Admin.Users))
	router.GET("/api/admin/managers", auth(h.Admin.Managers))
	router.GET("/api/admin/pending-managers", auth(h.Admin.PendingManagers))
	router.POST("/api/admin/managers/:id/approve", auth(h.Admin.ApproveManager))
	router.POST("/api/admin/users/:id/promote-admin", auth(h.Admin.PromoteAdmin))
	router.POST("/api/admin/managers/:id/remove", auth(h.Admin.RemoveManager))

	router.GET("/api/admin/manager-requests", auth(h.Admin.ManagerRequests))
	router.POST("/api/admin/manager-requests/:id/approve", auth(h.Admin.ApproveRequest))
	router.POST("/api/admin/manager-requests/:id/reject", auth(h.Admin.RejectRequest))

	router.GET("/api/admin/events", auth(h.Admin.Events))
	router.POST("/api/admin/events/:id/assign-team", auth(h.Manager.AssignTeam))

	router.GET("/api/admin/conversations", auth(h.Chats.List(chats.Admin)))
	router.GET("/api/admin/conversations/:id/messages", auth(h.Chats.Messages(chats.Admin)))

	router.GET("/api/admin/support-tickets", auth(h.Tickets.List))
	router.PATCH("/api/admin/support-tickets/:id", auth(h.Tickets.Answer))

	router.GET("/api/admin/user-activity", auth(h.Admin.Activity))
	router.POST("/api/admin/notifications/send", auth(h.Admin.SendNotification))

	router.GET("/api/admin/promotions", auth(h.Admin.Promotions))
	router.POST("/api/admin/promotions", auth(h.Admin.CreatePromotion))
	router.PATCH("/api/admin/promotions/:id", auth(h.Admin.UpdatePromotion))
	router.DELETE("/api/admin/promotions/:id", auth(h.Admin.DeletePromotion))
}

func AddAnalyticsRoutes(router *httprouter.Router, g guard, h *Handlers) {
	auth := g.as(admins...)

	router.GET("/api/admin/analytics/dashboard", auth(h.Analytics.Dashboard))
	router.GET("/api/admin/analytics/reports", auth(h.Analytics.Reports))
	router.GET("/api/admin/analytics/manager-performance", auth(h.Analytics.ManagerPerformance))
	router.GET("/api/admin/analytics/load", auth(h.Analytics.Load))
}
