package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "statementviewer/libs/redis"
	"statementviewer/services/dashboard/internal/clients"
	"statementviewer/services/dashboard/internal/config"
	"statementviewer/services/dashboard/internal/coordinator"
	httpserver "statementviewer/services/dashboard/internal/http"
	"statementviewer/services/dashboard/internal/http/handlers"
	"statementviewer/services/dashboard/internal/http/middleware"
	"statementviewer/services/dashboard/internal/query"
	"statementviewer/services/dashboard/internal/session"
	"statementviewer/services/dashboard/internal/views"
	"statementviewer/services/dashboard/internal/ws"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// App wires dashboard dependencies.
type App struct {
	server      *httpserver.Server
	registry    *session.Registry
	manager     *ws.Manager
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, redisClient, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cache := query.NewClient(store, logger.Named("query"))

	httpClient := clients.NewDefaultHTTPClient(cfg.API.Timeout)
	statements := clients.NewStatementClient(cfg.API.BaseURL, httpClient)

	registry := session.NewRegistry(func(id string) *coordinator.Coordinator {
		return coordinator.New(statements, cache, coordinator.Options{
			DismissAfter: cfg.Notifications.DismissAfter,
			Logger:       logger.Named("coordinator").With(zap.String("session_id", id)),
		})
	}, session.Options{
		IdleTimeout:   cfg.Sessions.IdleTimeout,
		SweepInterval: cfg.Sessions.SweepInterval,
		Logger:        logger.Named("session"),
	})

	loc, err := cfg.Location()
	if err != nil {
		closeRedis(redisClient, logger)
		return nil, err
	}
	format, err := views.NewFormatter(cfg.Display.Language, cfg.Display.CurrencySymbol, loc)
	if err != nil {
		closeRedis(redisClient, logger)
		return nil, err
	}
	renderer, err := views.NewRenderer(format)
	if err != nil {
		closeRedis(redisClient, logger)
		return nil, err
	}

	manager := ws.NewManager()
	live := ws.NewServer(manager, renderer, wsWriteTimeout, wsPingInterval, logger.Named("ws"))

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Dashboard: handlers.NewDashboardHandlers(registry, renderer, live, handlers.PageOptions{
			Title: cfg.Display.Title,
			Lang:  cfg.Display.Language,
		}, logger),
		HealthHandler: handlers.NewHealthHandler(handlers.HealthDeps{
			Cache:       cache,
			Sessions:    registry.Len,
			Connections: manager.Count,
		}),
		Static: views.Static(),
	})

	server := httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RequestID,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	logger.Info("dashboard configured",
		zap.String("api_url", statements.BaseURL()),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	return &App{
		server:      server,
		registry:    registry,
		manager:     manager,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (query.Store, *redis.Client, error) {
	if cfg.Cache.Backend != config.CacheRedis {
		return query.NewMemoryStore(), nil, nil
	}
	client, err := libredis.NewRedisClient(ctx, libredis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("app: connect redis: %w", err)
	}
	return query.NewRedisStore(client, cfg.Cache.Redis.Prefix, cfg.Cache.Redis.TTL), client, nil
}

// Run serves HTTP traffic and sweeps idle sessions until ctx is done.
func (a *App) Run(ctx context.Context) error {
	go a.registry.Start(ctx)
	go a.manager.Start(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	a.manager.CloseAll()
	a.registry.Close()
	closeRedis(a.redisClient, a.logger)
}

func closeRedis(client *redis.Client, logger *zap.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.Warn("failed to close redis", zap.Error(err))
	}
}
