package bootstrap

import (
	"context"
	"time"

	"notebook-sync-be/internal/config"
	"notebook-sync-be/internal/controller"
	"notebook-sync-be/internal/handler"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/pkg/serverutils"
	"notebook-sync-be/internal/realtime"
	"notebook-sync-be/internal/repository/memory"
	"notebook-sync-be/internal/repository/unitofwork"
	"notebook-sync-be/internal/service"
	"notebook-sync-be/internal/websocket"

	pktNats "notebook-sync-be/pkg/nats"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	oauthStateTTL   = 10 * time.Minute
	sessionCacheTTL = time.Minute
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	NotebookController controller.INotebookController
	AuthController     controller.IAuthController
	OAuthController    controller.IOAuthController

	RealtimeHandler *handler.RealtimeHandler

	// Background services, run by main under one errgroup
	WebSocketHub *websocket.Hub
	RedisBridge  *realtime.RedisBridge // nil without Redis

	Registry *prometheus.Registry

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	instanceID := uuid.NewString()
	c := &Container{Logger: sysLogger}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := realtime.NewMetrics(registry)
	c.Registry = registry

	// 2. Infrastructure
	// NATS is optional; without it domain events are skipped.
	var eventPublisher service.EventPublisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "NATS unavailable, domain events disabled", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	// Redis is optional; without it this instance only serves its own clients.
	var broker realtime.Broker
	if rdb := connectRedis(cfg.App.RedisURL, sysLogger); rdb != nil {
		broker = realtime.NewRedisBroker(rdb)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 3. Realtime
	feed := realtime.NewFeed(instanceID, sysLogger, metrics)
	c.closers = append(c.closers, func() { _ = feed.Close() })
	if broker != nil {
		c.RedisBridge = realtime.NewRedisBridge(feed, broker, sysLogger)
	}

	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)
	c.closers = append(c.closers, func() { _ = wsLogger.Sync() })
	c.WebSocketHub = websocket.NewHub(broker, instanceID, wsLogger, metrics)

	listenerService := realtime.NewListenerService(feed, service.NewSnapshotLoader(uowFactory), sysLogger, metrics)

	// 4. Services
	publisherService := service.NewPublisherService(feed, eventPublisher, sysLogger)
	notebookService := service.NewNotebookService(uowFactory, publisherService)

	sessionCache := memory.NewSessionCache(sessionCacheTTL)
	authService := service.NewAuthService(uowFactory, sessionCache, c.WebSocketHub, sysLogger)
	oauthService := service.NewOAuthService(
		uowFactory,
		[]service.IdentityProvider{service.NewGoogleProvider(cfg.Google)},
		memory.NewOAuthStateStore(oauthStateTTL),
		c.WebSocketHub,
		sysLogger,
		service.OAuthOptions{
			JwtSecret:  cfg.Auth.JwtSecret,
			SessionTTL: time.Duration(cfg.Auth.JwtTTLHours) * time.Hour,
		},
	)

	// 5. Controllers
	jwtMiddleware := serverutils.NewJwtMiddleware(cfg.Auth.JwtSecret, authService)

	c.NotebookController = controller.NewNotebookController(notebookService, jwtMiddleware)
	c.AuthController = controller.NewAuthController(authService, jwtMiddleware)
	c.OAuthController = controller.NewOAuthController(oauthService, cfg.App.FrontendURL, sysLogger)
	c.RealtimeHandler = handler.NewRealtimeHandler(authService, listenerService, c.WebSocketHub, cfg.Auth.JwtSecret, wsLogger)

	return c
}

// connectRedis returns nil when Redis is not reachable; the instance then
// runs without cross-instance fan-out.
func connectRedis(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Bootstrap", "Redis unavailable, running single instance", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// Close releases infrastructure in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
