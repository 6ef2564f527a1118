// Package app assembles the helpdesk service from configuration: stores,
// event fan-out, live query hub, services and the HTTP surface.
package app

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/collipulli/helpdesk/internal/api/http"
	"github.com/collipulli/helpdesk/internal/api/http/handlers"
	"github.com/collipulli/helpdesk/internal/auth"
	"github.com/collipulli/helpdesk/internal/config"
	"github.com/collipulli/helpdesk/internal/events"
	"github.com/collipulli/helpdesk/internal/observability"
	"github.com/collipulli/helpdesk/internal/persistence"
	"github.com/collipulli/helpdesk/internal/realtime"
	"github.com/collipulli/helpdesk/internal/service"
	"github.com/collipulli/helpdesk/internal/worker"
)

// Options carries already-opened infrastructure. Postgres and Redis may
// be nil; Stores then falls back to memory and events stay local.
type Options struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
}

// App is the assembled service.
type App struct {
	Fiber      *fiber.App
	Auth       *service.AuthService
	Profiles   *service.ProfileService
	Tickets    *service.TicketService
	Hub        *realtime.Hub
	Dispatcher events.Dispatcher
	Stores     persistence.Stores

	// Authenticator resolves access tokens for in-process callers.
	Authenticator *auth.AuthMiddleware

	bridge  *events.RedisBridge
	streams *handlers.StreamHandler
	logger  *zap.Logger
}

// New wires every component without starting background work.
func New(opts Options) *App {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	stores := persistence.NewStores(opts.Postgres)

	local := events.NewInMemoryDispatcher(logger)
	var dispatcher events.Dispatcher = local
	var bridge *events.RedisBridge
	var revocation auth.RevocationStore
	if opts.Redis != nil {
		bridge = events.NewRedisBridge(opts.Redis.Client, cfg.Realtime.RedisChannel, local, logger)
		dispatcher = bridge
		revocation = auth.NewRedisRevocationStore(opts.Redis.Client)
	}

	hub := realtime.NewHub(logger, opts.Metrics)
	hub.Attach(local)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   stores.Users,
		Revocation: revocation,
		Dispatcher: dispatcher,
		Metrics:    opts.Metrics,
	})
	profileService := service.NewProfileService(service.ProfileDependencies{
		UserRepo:   stores.Users,
		Hub:        hub,
		Dispatcher: dispatcher,
		Metrics:    opts.Metrics,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  stores.Tickets,
		CommentRepo: stores.Comments,
		UserRepo:    stores.Users,
		Hub:         hub,
		Dispatcher:  dispatcher,
		Metrics:     opts.Metrics,
		RecentLimit: cfg.App.RecentTicketsLimit,
	})

	notifications := service.NewNotificationService(local, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), stores.Users, authService.Revocation())
	streams := handlers.NewStreamHandler(ticketService, profileService, authService.Revocation(), cfg.Realtime.KeepAlive(), logger)
	streams.Attach(local)

	fiberApp := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler(logger, opts.Metrics),
	})
	httptransport.RegisterMiddlewares(fiberApp, logger, opts.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(fiberApp, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, opts.Postgres, opts.Redis, hub),
		Users:          handlers.NewUsersHandler(authService, profileService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Streams:        streams,
		AuthMiddleware: authMiddleware,
		Metrics:        opts.Metrics,
	})

	return &App{
		Fiber:         fiberApp,
		Auth:          authService,
		Profiles:      profileService,
		Tickets:       ticketService,
		Hub:           hub,
		Dispatcher:    dispatcher,
		Stores:        stores,
		Authenticator: authMiddleware,
		bridge:        bridge,
		streams:       streams,
		logger:        logger,
	}
}

// Start launches background workers bound to ctx.
func (a *App) Start(ctx context.Context) {
	worker.StartEventBridge(ctx, a.bridge, a.logger)
}

// Shutdown ends open streams, then stops the HTTP server.
func (a *App) Shutdown() error {
	a.streams.Close()
	return a.Fiber.Shutdown()
}
