package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"notebook-sync-be/internal/bootstrap"
	"notebook-sync-be/internal/config"
	"notebook-sync-be/internal/pkg/logger"
	"notebook-sync-be/internal/server"
	"notebook-sync-be/internal/tracer"
	"notebook-sync-be/pkg/database"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if cfg.Auth.JwtSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer sysLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
	shutdownTracer := tracer.InitTracer(cfg.Tracing, sysLogger)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction())
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg, sysLogger)
	defer container.Close()

	// 5. Run background services and the HTTP server until a signal arrives
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.WebSocketHub.Run(gctx)
	})
	if container.RedisBridge != nil {
		g.Go(func() error {
			return container.RedisBridge.Run(gctx)
		})
	}

	srv := server.New(cfg, container)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		sysLogger.Error("Main", "Shutting down after failure", map[string]interface{}{"error": err})
		return
	}
	sysLogger.Info("Main", "Shutdown complete", nil)
}
