package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/collipulli/helpdesk/internal/persistence"
	"github.com/collipulli/helpdesk/internal/realtime"
)

// probe is one readiness dependency. A nil check means the dependency is
// not configured, which never fails readiness.
type probe struct {
	name     string
	disabled string
	check    func(ctx context.Context) error
}

// HealthHandler answers the liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	hub         *realtime.Hub
	probes      []probe
}

// NewHealthHandler builds the handler. postgres, redis and hub may be nil.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, hub *realtime.Hub) *HealthHandler {
	pg := probe{name: "postgres", disabled: "disabled (in-memory store)"}
	if postgres.Enabled() {
		pg.check = postgres.Ping
	}
	rd := probe{name: "redis", disabled: "disabled"}
	if redis != nil {
		rd.check = redis.Ping
	}
	return &HealthHandler{serviceName: serviceName, version: version, hub: hub, probes: []probe{pg, rd}}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	}
	if h.hub != nil {
		body["live_queries"] = h.hub.Len()
	}
	return c.JSON(body)
}

// Ready GET /health/ready. Every configured dependency must answer within
// two seconds.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	deps := fiber.Map{}
	ready := true
	for _, p := range h.probes {
		switch {
		case p.check == nil:
			deps[p.name] = p.disabled
		case p.check(ctx) != nil:
			deps[p.name] = "unreachable"
			ready = false
		default:
			deps[p.name] = "ok"
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": deps})
}
