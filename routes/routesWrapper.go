package routes

import (
	"movment/admin"
	"movment/analytics"
	"movment/auth"
	"movment/chats"
	"movment/events"
	"movment/invoice"
	"movment/manager"
	"movment/middleware"
	"movment/pay"
	"movment/profile"
	"movment/ratelim"
	"movment/reviews"
	"movment/tickets"
	"movment/userdata"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Handlers bundles every feature handler the router serves.
type Handlers struct {
	Auth      *auth.Handler
	Events    *events.Handler
	Profile   *profile.Handler
	UserData  *userdata.Handler
	Tickets   *tickets.Handler
	Pay       *pay.Handler
	Keys      pay.Keys
	Invoice   *invoice.Handler
	Reviews   *reviews.Handler
	Chats     *chats.Handler
	Manager   *manager.Handler
	Admin     *admin.Handler
	Analytics *analytics.Handler
}

type guard struct {
	gate *middleware.Gate
	rl   *ratelim.RateLimiter
}

// as authenticates the caller and admits only the listed roles.
func (g guard) as(roles ...string) func(httprouter.Handle) httprouter.Handle {
	return middleware.Chain(g.rl.Limit, g.gate.Authenticate, g.gate.RequireRoles(roles...))
}

func RoutesWrapper(router *httprouter.Router, rateLimiter *ratelim.RateLimiter, gate *middleware.Gate, h *Handlers, logger *zap.Logger) {
	g := guard{gate: gate, rl: rateLimiter}
	AddAuthRoutes(router, g, h)
	AddEventsRoutes(router, g, h)
	AddUserRoutes(router, g, h)
	AddPayRoutes(router, g, h, logger)
	AddManagerRoutes(router, g, h)
	AddAdminRoutes(router, g, h)
	AddAnalyticsRoutes(router, g, h)
}
