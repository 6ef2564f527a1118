package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/collipulli/helpdesk/internal/api/http/handlers"
	"github.com/collipulli/helpdesk/internal/auth"
	"github.com/collipulli/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Streams        *handlers.StreamHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	// middleware is attached per route: fiber group middleware applies to
	// the whole prefix, which would leak admin checks onto member routes
	authn := cfg.AuthMiddleware.Handle
	member := auth.RequireAnyRole()
	admin := auth.RequireAdmin()

	v1 := app.Group("/v1")

	v1.Post("/auth/sign-up", cfg.Users.SignUp)
	v1.Post("/auth/sign-in", cfg.Users.SignIn)
	v1.Post("/auth/sign-out", authn, cfg.Users.SignOut)

	// token required; the profile may be missing
	v1.Get("/me", authn, cfg.Users.Me)
	v1.Get("/stream/me", authn, cfg.Streams.Me)

	v1.Patch("/me", authn, member, cfg.Users.UpdateMe)
	v1.Post("/tickets", authn, member, cfg.Tickets.CreateTicket)
	v1.Get("/tickets", authn, member, cfg.Tickets.ListTickets)
	v1.Get("/tickets/:id", authn, member, cfg.Tickets.GetTicket)
	v1.Post("/tickets/:id/comments", authn, member, cfg.Tickets.AddComment)
	v1.Get("/stream/tickets", authn, member, cfg.Streams.Tickets)
	v1.Get("/stream/tickets/:id", authn, member, cfg.Streams.Ticket)
	v1.Get("/stream/tickets/:id/comments", authn, member, cfg.Streams.Comments)

	v1.Patch("/tickets/:id", authn, admin, cfg.Tickets.UpdateTicket)
	v1.Delete("/tickets/:id", authn, admin, cfg.Tickets.DeleteTicket)
	v1.Get("/users", authn, admin, cfg.Users.ListUsers)
	v1.Get("/stats", authn, admin, cfg.Tickets.Stats)
	v1.Get("/stream/users", authn, admin, cfg.Streams.Users)
}
