package routes

import (
	"movment/pay"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// AddPayRoutes wires the stub gateway. Payment creation honours Idempotency-Key.
func AddPayRoutes(router *httprouter.Router, g guard, h *Handlers, logger *zap.Logger) {
	router.POST("/api/user/payments", g.as(anyRole...)(pay.Idempotent(h.Keys, logger)(h.Pay.CreatePayment)))
	router.GET("/api/user/payments", g.as(anyRole...)(h.Pay.ListPayments))

	router.GET("/api/admin/refunds", g.as(admins...)(h.Pay.ListRefunds))
	router.POST("/api/admin/refunds", g.as(admins...)(h.Pay.CreateRefund))
	router.PATCH("/api/admin/refunds/:id", g.as(admins...)(h.Pay.DecideRefund))
}
